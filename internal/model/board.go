package model

import "time"

// Board is a logical infinite canvas: the unit of subscription and of
// presence.
type Board struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	CreatedBy string    `gorm:"type:varchar(64);not null" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Board) TableName() string {
	return "boards"
}
