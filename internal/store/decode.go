package store

import (
	"encoding/json"
	"fmt"

	"whiteboard-backend/internal/model"
)

// mapToObject decodes a mutation-layer field map into a model.Object via a
// JSON round trip. The mutation layer already validated the field set
// against the declared type (see internal/mutation), so this is purely a
// shape conversion, not a second validation pass.
func mapToObject(fields map[string]any) (*model.Object, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	var obj model.Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("unmarshal into object: %w", err)
	}
	return &obj, nil
}
