// Package mutation implements the client-facing write API (C6):
// validated create/update/delete of board objects and presence writes,
// on top of the LWW store.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"

	"whiteboard-backend/internal/clock"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/store"
)

var (
	ErrUnknownType    = errors.New("mutation: unknown object type")
	ErrInvalidField   = errors.New("mutation: invalid field")
	ErrIncompatible   = errors.New("mutation: field incompatible with declared type")
	ErrInvalidID      = errors.New("mutation: invalid object id")
)

const maxTextLength = 10000

var hexColorRE = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// typeFields lists which optional fields a given object type may carry.
// A field present for a type not listed here is a validation error.
var typeFields = map[model.ObjectType]map[string]bool{
	model.ObjectTypeSticky:    {"text": true, "fontSize": true},
	model.ObjectTypeText:      {"text": true, "fontSize": true},
	model.ObjectTypeRectangle: {},
	model.ObjectTypeCircle:    {"radius": true},
	model.ObjectTypeLine:      {"points": true, "lineStyle": true},
	model.ObjectTypeFrame:     {"text": true},
	model.ObjectTypeConnector: {"connectedFrom": true, "connectedTo": true, "lineStyle": true, "arrowHead": true},
}

// commonFields are always allowed regardless of type.
var commonFields = map[string]bool{
	"id": true, "type": true, "x": true, "y": true, "width": true, "height": true,
	"rotation": true, "color": true, "zIndex": true, "lastEditedBy": true, "updatedAt": true,
}

// CreateObject validates a new object's declared type and fields,
// assigns an id if the caller didn't propose one, and writes it.
func CreateObject(ctx context.Context, s *store.Store, boardID, userID string, fields map[string]any) (string, error) {
	if err := validateFields(fields); err != nil {
		return "", err
	}

	id, _ := fields["id"].(string)
	if id == "" {
		id = clock.NewObjectID()
	} else if !clock.ValidObjectID(id) {
		return "", ErrInvalidID
	}
	fields["id"] = id
	fields["lastEditedBy"] = userID

	if _, err := s.Put(ctx, boardID, id, fields, store.ModeCreate); err != nil {
		return "", fmt.Errorf("mutation: create object: %w", err)
	}
	return id, nil
}

// UpdateObject applies a partial merge write. Per §4.6 this must
// succeed even against a missing document — the store's merge upsert
// creates a skeleton rather than failing.
func UpdateObject(ctx context.Context, s *store.Store, boardID, userID, id string, partial map[string]any) error {
	if !clock.ValidObjectID(id) {
		return ErrInvalidID
	}
	if err := validatePartial(partial); err != nil {
		return err
	}
	partial["lastEditedBy"] = userID
	if _, err := s.Put(ctx, boardID, id, partial, store.ModeMerge); err != nil {
		return fmt.Errorf("mutation: update object: %w", err)
	}
	return nil
}

// DeleteObject issues an idempotent delete. Cascade to dangling
// connectors is the board hub's responsibility (§4.4), not this layer's.
func DeleteObject(ctx context.Context, s *store.Store, boardID, id string) error {
	if !clock.ValidObjectID(id) {
		return ErrInvalidID
	}
	if err := s.Delete(ctx, boardID, id); err != nil {
		return fmt.Errorf("mutation: delete object: %w", err)
	}
	return nil
}

// ValidateCreate is the exported form of validateFields, used by the
// agent executor to validate tool-produced create payloads before they
// enter the pending plan.
func ValidateCreate(fields map[string]any) error {
	return validateFields(fields)
}

// ValidatePartial is the exported form of validatePartial, used by the
// agent executor to validate tool-produced update payloads.
func ValidatePartial(fields map[string]any) error {
	return validatePartial(fields)
}

// validateFields checks a full create payload: required type, no
// unknown type, no field incompatible with the declared type, and the
// shared input constraints (finite coordinates, hex colors, bounded
// text).
func validateFields(fields map[string]any) error {
	typeVal, _ := fields["type"].(string)
	ot := model.ObjectType(typeVal)
	if !ot.Valid() {
		return ErrUnknownType
	}
	allowed := typeFields[ot]
	for key := range fields {
		if commonFields[key] || allowed[key] {
			continue
		}
		return fmt.Errorf("%w: %q not valid for type %q", ErrIncompatible, key, typeVal)
	}
	return validateCommon(fields, ot)
}

// validatePartial checks a merge payload against the shared input
// constraints only — the declared type isn't necessarily present in a
// partial update, so type-compatibility isn't checked here. The
// positivity check below still applies to width/height since a
// connector-targeted resize never goes through this API in practice.
func validatePartial(fields map[string]any) error {
	return validateCommon(fields, "")
}

// validateCommon applies the shared input constraints and the §3
// positivity invariant: radius (circle-only) and width/height (every
// shape but connectors) must be strictly positive whenever present.
func validateCommon(fields map[string]any, ot model.ObjectType) error {
	for _, key := range []string{"x", "y", "width", "height", "rotation", "radius", "fontSize", "zIndex"} {
		v, ok := fields[key]
		if !ok {
			continue
		}
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %q must be a finite number", ErrInvalidField, key)
		}
		switch key {
		case "radius":
			if f <= 0 {
				return fmt.Errorf("%w: radius must be > 0", ErrInvalidField)
			}
		case "width", "height":
			if ot != model.ObjectTypeConnector && f <= 0 {
				return fmt.Errorf("%w: %q must be > 0", ErrInvalidField, key)
			}
		}
	}
	if v, ok := fields["color"]; ok {
		s, ok := v.(string)
		if !ok || !hexColorRE.MatchString(s) {
			return fmt.Errorf("%w: color must match #rrggbb", ErrInvalidField)
		}
	}
	if v, ok := fields["text"]; ok {
		s, ok := v.(string)
		if !ok || len(s) > maxTextLength {
			return fmt.Errorf("%w: text exceeds maximum length", ErrInvalidField)
		}
	}
	for _, key := range []string{"connectedFrom", "connectedTo"} {
		if v, ok := fields[key]; ok {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: %q must be a string", ErrInvalidField, key)
			}
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
