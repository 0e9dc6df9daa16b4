package agent

import (
	"sort"

	"whiteboard-backend/internal/model"
)

// Padding is the fixed margin auto-fit leaves between a frame's edge and
// its children's bounding boxes.
type Padding struct {
	Side, Top, Bottom float64
}

// AutoFit recomputes every frame's rectangle so it contains its
// assigned children with padding, per the two-phase child-assignment
// algorithm: strict containment first, then spillover for objects the
// model placed just outside an under-sized frame. Frames only grow.
// It mutates objects in place and returns the ids of frames it resized.
func AutoFit(objects map[string]model.Object, pad Padding) []string {
	frameIDs := make([]string, 0)
	for id, o := range objects {
		if o.IsFrame() {
			frameIDs = append(frameIDs, id)
		}
	}
	if len(frameIDs) == 0 {
		return nil
	}

	assignment := assignChildren(objects, frameIDs)

	// Process frames in increasing current-area order so inner frames
	// expand before outer frames that contain them.
	sort.Slice(frameIDs, func(i, j int) bool {
		return frameArea(objects[frameIDs[i]]) < frameArea(objects[frameIDs[j]])
	})

	var resized []string
	for _, frameID := range frameIDs {
		children := assignment[frameID]
		if len(children) == 0 {
			continue
		}
		frame := objects[frameID]
		fx, fy, fw, fh := frame.X, frame.Y, frame.Width, frame.Height
		minX, minY := fx, fy
		maxX, maxY := fx+fw, fy+fh

		for _, childID := range children {
			c := objects[childID]
			cx, cy, cw, ch := c.BBox()
			needMinX := cx - pad.Side
			needMinY := cy - pad.Top
			needMaxX := cx + cw + pad.Side
			needMaxY := cy + ch + pad.Bottom
			if needMinX < minX {
				minX = needMinX
			}
			if needMinY < minY {
				minY = needMinY
			}
			if needMaxX > maxX {
				maxX = needMaxX
			}
			if needMaxY > maxY {
				maxY = needMaxY
			}
		}

		newW := maxX - minX
		newH := maxY - minY
		if minX != fx || minY != fy || newW != fw || newH != fh {
			frame.X = minX
			frame.Y = minY
			frame.Width = newW
			frame.Height = newH
			objects[frameID] = frame
			resized = append(resized, frameID)
		}
	}
	return resized
}

// assignChildren implements the two-phase assignment: strict
// containment, then spillover for unassigned non-frame objects.
func assignChildren(objects map[string]model.Object, frameIDs []string) map[string][]string {
	assignment := make(map[string][]string)
	assignedFrame := make(map[string]string)

	// Phase 1: strict containment by top-left, smallest containing
	// frame wins (resolves nested frames). Frames themselves can be
	// children of a larger enclosing frame.
	for id, o := range objects {
		if o.IsConnector() {
			continue
		}
		best := ""
		bestArea := -1.0
		for _, fid := range frameIDs {
			if fid == id {
				continue // a frame is never its own child
			}
			f := objects[fid]
			cx, cy, _, _ := o.BBox()
			if cx > f.X && cx < f.X+f.Width && cy > f.Y && cy < f.Y+f.Height {
				a := frameArea(f)
				if best == "" || a < bestArea {
					best = fid
					bestArea = a
				}
			}
		}
		if best != "" {
			assignment[best] = append(assignment[best], id)
			assignedFrame[id] = best
		}
	}

	// Phase 2: spillover for non-frame objects still unassigned.
	for id, o := range objects {
		if o.IsConnector() || o.IsFrame() {
			continue
		}
		if _, ok := assignedFrame[id]; ok {
			continue
		}
		cx, cy, cw, ch := o.BBox()
		best := ""
		bestGap := -1.0
		for _, fid := range frameIDs {
			f := objects[fid]
			gapX := axisGap(cx, cx+cw, f.X, f.X+f.Width)
			gapY := axisGap(cy, cy+ch, f.Y, f.Y+f.Height)
			if gapX > cw || gapY > ch {
				continue
			}
			total := gapX + gapY
			if best == "" || total < bestGap {
				best = fid
				bestGap = total
			}
		}
		if best != "" {
			assignment[best] = append(assignment[best], id)
		}
	}

	return assignment
}

func axisGap(aMin, aMax, bMin, bMax float64) float64 {
	if aMax < bMin {
		return bMin - aMax
	}
	if bMax < aMin {
		return aMin - bMax
	}
	return 0
}

func frameArea(f model.Object) float64 {
	return f.Width * f.Height
}

