package mutation

import (
	"encoding/json"
	"fmt"

	"whiteboard-backend/internal/model"
)

// DecodeObject merges fields onto the existing in-memory object for id
// (if any) and decodes the result into a model.Object, the same
// JSON-round-trip approach the store uses for its own merge upserts.
// It lets the agent executor maintain a local, decoded view of its
// pending plan without a database round trip.
func DecodeObject(existing map[string]model.Object, id string, fields map[string]any) (*model.Object, error) {
	base := map[string]any{}
	if cur, ok := existing[id]; ok {
		raw, err := json.Marshal(cur)
		if err != nil {
			return nil, fmt.Errorf("mutation: marshal existing object: %w", err)
		}
		if err := json.Unmarshal(raw, &base); err != nil {
			return nil, fmt.Errorf("mutation: unmarshal existing object: %w", err)
		}
	}
	base["id"] = id
	for k, v := range fields {
		base[k] = v
	}

	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("mutation: marshal merged fields: %w", err)
	}
	var obj model.Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("mutation: decode merged object: %w", err)
	}
	return &obj, nil
}
