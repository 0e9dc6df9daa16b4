package model

// ObjectType discriminates the kind of drawable an Object represents.
type ObjectType string

const (
	ObjectTypeSticky    ObjectType = "sticky"
	ObjectTypeRectangle ObjectType = "rectangle"
	ObjectTypeCircle    ObjectType = "circle"
	ObjectTypeLine      ObjectType = "line"
	ObjectTypeText      ObjectType = "text"
	ObjectTypeFrame     ObjectType = "frame"
	ObjectTypeConnector ObjectType = "connector"
)

func (t ObjectType) String() string {
	return string(t)
}

func (t ObjectType) Valid() bool {
	switch t {
	case ObjectTypeSticky, ObjectTypeRectangle, ObjectTypeCircle, ObjectTypeLine,
		ObjectTypeText, ObjectTypeFrame, ObjectTypeConnector:
		return true
	}
	return false
}

// LineStyle is the connector stroke style.
type LineStyle string

const (
	LineStyleSolid  LineStyle = "solid"
	LineStyleDashed LineStyle = "dashed"
)

func (s LineStyle) String() string {
	return string(s)
}

// ChangeKind is the kind of a store change event, mirrored on the wire to
// board subscribers.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

func (k ChangeKind) String() string {
	return string(k)
}
