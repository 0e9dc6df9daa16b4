package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Object is any drawable element living on a board, including frames and
// connectors. The common envelope is always populated; type-specific
// fields are nullable and validated against Type by the mutation layer
// before they ever reach the store (see internal/mutation).
type Object struct {
	ID      string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	BoardID string     `gorm:"primaryKey;type:varchar(64);index:idx_object_board_updated,priority:1" json:"boardId"`
	Type    ObjectType `gorm:"type:varchar(20);not null" json:"type"`

	X        float64 `gorm:"not null" json:"x"`
	Y        float64 `gorm:"not null" json:"y"`
	Width    float64 `gorm:"not null;default:0" json:"width"`
	Height   float64 `gorm:"not null;default:0" json:"height"`
	Rotation float64 `gorm:"not null;default:0" json:"rotation"`
	Color    string  `gorm:"type:varchar(7);not null;default:'#000000'" json:"color"`
	ZIndex   int     `gorm:"not null;default:0" json:"zIndex"`
	Text     *string `gorm:"type:text" json:"text,omitempty"`

	// text
	FontSize *float64 `json:"fontSize,omitempty"`

	// circle
	Radius *float64 `json:"radius,omitempty"`

	// line: [x0,y0,x1,y1] relative to (x,y)
	Points datatypes.JSON `gorm:"type:jsonb" json:"points,omitempty"`

	// connector
	ConnectedFrom *string    `gorm:"type:varchar(64)" json:"connectedFrom,omitempty"`
	ConnectedTo   *string    `gorm:"type:varchar(64)" json:"connectedTo,omitempty"`
	LineStyle     *LineStyle `gorm:"type:varchar(10)" json:"lineStyle,omitempty"`
	ArrowHead     *bool      `json:"arrowHead,omitempty"`

	LastEditedBy string    `gorm:"type:varchar(64);not null" json:"lastEditedBy"`
	UpdatedAt    time.Time `gorm:"not null;index:idx_object_board_updated,priority:2" json:"updatedAt"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Object) TableName() string {
	return "objects"
}

// PointsSlice decodes the line's relative endpoint pair, if present.
func (o *Object) PointsSlice() ([]float64, bool) {
	if len(o.Points) == 0 {
		return nil, false
	}
	var pts []float64
	if err := json.Unmarshal(o.Points, &pts); err != nil {
		return nil, false
	}
	return pts, true
}

// IsConnector reports whether the object is a connector.
func (o *Object) IsConnector() bool {
	return o.Type == ObjectTypeConnector
}

// IsFrame reports whether the object is a frame container.
func (o *Object) IsFrame() bool {
	return o.Type == ObjectTypeFrame
}

// BBox returns the object's world-space bounding box (top-left, width,
// height). Circles are centered at (x,y); their bbox is offset by radius
// on both axes, per §3 of the object model.
func (o *Object) BBox() (x, y, w, h float64) {
	if o.Type == ObjectTypeCircle && o.Radius != nil {
		r := *o.Radius
		return o.X - r, o.Y - r, 2 * r, 2 * r
	}
	return o.X, o.Y, o.Width, o.Height
}
