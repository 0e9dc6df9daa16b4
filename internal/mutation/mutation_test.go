package mutation

import (
	"errors"
	"testing"

	"whiteboard-backend/internal/model"
)

func TestValidateFieldsRejectsUnknownType(t *testing.T) {
	err := validateFields(map[string]any{"type": "polygon", "x": 1.0, "y": 1.0})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestValidateFieldsRejectsIncompatibleField(t *testing.T) {
	err := validateFields(map[string]any{"type": "rectangle", "radius": 5.0})
	if !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible, got %v", err)
	}
}

func TestValidateFieldsAcceptsMatchingField(t *testing.T) {
	err := validateFields(map[string]any{"type": "circle", "radius": 5.0, "x": 0.0, "y": 0.0, "color": "#ff0000"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateCommonRejectsNonFiniteCoordinate(t *testing.T) {
	err := validateCommon(map[string]any{"x": mustNaN()}, "")
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestValidateCommonRejectsMalformedColor(t *testing.T) {
	err := validateCommon(map[string]any{"color": "red"}, "")
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField for malformed color, got %v", err)
	}
}

func TestValidateCommonRejectsOversizedText(t *testing.T) {
	big := make([]byte, maxTextLength+1)
	err := validateCommon(map[string]any{"text": string(big)}, "")
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField for oversized text, got %v", err)
	}
}

func TestValidateFieldsRejectsZeroRadiusCircle(t *testing.T) {
	err := validateFields(map[string]any{"type": "circle", "radius": 0.0, "x": 0.0, "y": 0.0})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField for zero radius, got %v", err)
	}
}

func TestValidateFieldsRejectsNegativeWidth(t *testing.T) {
	err := validateFields(map[string]any{"type": "rectangle", "width": -5.0, "height": 10.0, "x": 0.0, "y": 0.0})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField for negative width, got %v", err)
	}
}

func TestValidateFieldsAllowsZeroWidthConnector(t *testing.T) {
	err := validateFields(map[string]any{"type": string(model.ObjectTypeConnector), "width": 0.0})
	if err != nil {
		t.Fatalf("expected connector to be exempt from width positivity, got %v", err)
	}
}

func TestValidatePartialRejectsNegativeHeight(t *testing.T) {
	err := validatePartial(map[string]any{"height": -1.0})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField for negative height, got %v", err)
	}
}

func mustNaN() float64 {
	var zero float64
	return zero / zero
}
