package agent

import (
	"testing"

	"whiteboard-backend/internal/model"
)

func rect(id string, x, y, w, h float64) model.Object {
	return model.Object{ID: id, Type: model.ObjectTypeRectangle, X: x, Y: y, Width: w, Height: h}
}

func frame(id string, x, y, w, h float64) model.Object {
	return model.Object{ID: id, Type: model.ObjectTypeFrame, X: x, Y: y, Width: w, Height: h}
}

func TestAutoFitGrowsFrameToContainChild(t *testing.T) {
	objects := map[string]model.Object{
		"frame1": frame("frame1", 0, 0, 100, 100),
		"child1": rect("child1", 10, 10, 20, 20),
	}
	pad := Padding{Side: 30, Top: 70, Bottom: 30}

	resized := AutoFit(objects, pad)
	if len(resized) != 1 || resized[0] != "frame1" {
		t.Fatalf("expected frame1 to resize, got %v", resized)
	}

	f := objects["frame1"]
	if f.X > 10-pad.Side || f.Y > 10-pad.Top {
		t.Fatalf("frame did not expand enough to pad the child: %+v", f)
	}
}

func TestAutoFitNeverShrinksFrame(t *testing.T) {
	objects := map[string]model.Object{
		"frame1": frame("frame1", 0, 0, 500, 500),
		"child1": rect("child1", 10, 80, 20, 20),
	}
	pad := Padding{Side: 30, Top: 70, Bottom: 30}

	AutoFit(objects, pad)
	f := objects["frame1"]
	if f.Width < 500 || f.Height < 500 {
		t.Fatalf("frame shrank: %+v", f)
	}
}

func TestAutoFitAssignsToSmallestContainingFrame(t *testing.T) {
	objects := map[string]model.Object{
		"outer":  frame("outer", 0, 0, 1000, 1000),
		"inner":  frame("inner", 100, 100, 200, 200),
		"nested": rect("nested", 120, 190, 10, 10),
	}
	pad := Padding{Side: 30, Top: 70, Bottom: 30}

	AutoFit(objects, pad)

	// "nested" belongs to inner, which grows left to x = 120-30 = 90
	// (width 300-90 = 210) to pad it.
	inner := objects["inner"]
	if inner.X != 90 || inner.Width != 210 {
		t.Fatalf("expected inner frame to grow to pad nested child, got %+v", inner)
	}
	nested := objects["nested"]
	if nested.X < inner.X || nested.Y < inner.Y {
		t.Fatalf("nested child fell outside inner frame after resize: nested=%+v inner=%+v", nested, inner)
	}
}

func TestAutoFitLeavesUnrelatedFramesUnchanged(t *testing.T) {
	objects := map[string]model.Object{
		"frame1": frame("frame1", 0, 0, 200, 200),
	}
	pad := Padding{Side: 30, Top: 70, Bottom: 30}

	resized := AutoFit(objects, pad)
	if len(resized) != 0 {
		t.Fatalf("expected no resize for an empty frame, got %v", resized)
	}
}
