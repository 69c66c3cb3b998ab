package vision

import (
	"image"

	"gocv.io/x/gocv"
)

const (
	// ScaleFactor is how much the search window grows between scales.
	ScaleFactor = 1.2
	// MinNeighbors is how many overlapping candidates a hit needs to be kept.
	MinNeighbors = 3
	// cascadeFlags is CASCADE_DO_CANNY_PRUNING.
	cascadeFlags = 1
)

// Minimum search windows for the coarse (upper body) and fine (face) stages.
var (
	CoarseWindow = image.Pt(60, 60)
	FineWindow   = image.Pt(25, 25)
)

// Classifier is a multi-scale sliding-window pattern matcher.
// *gocv.CascadeClassifier and *PigoClassifier both satisfy it.
type Classifier interface {
	DetectMultiScaleWithParams(img gocv.Mat, scale float64, minNeighbors, flags int,
		minSize, maxSize image.Point) []image.Rectangle
}

// DetectPattern runs the classifier over frame and returns the matches
// clipped to the frame. Smaller minWindow values widen the range of vision
// at the cost of speed. The frame is not modified. An empty frame or no
// match yields an empty slice.
func DetectPattern(frame gocv.Mat, classifier Classifier, minWindow image.Point) []image.Rectangle {
	rects := []image.Rectangle{}
	if frame.Empty() {
		return rects
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	for _, r := range classifier.DetectMultiScaleWithParams(frame, ScaleFactor, MinNeighbors, cascadeFlags, minWindow, image.Point{}) {
		r = Clip(r.Canon(), bounds)
		if r.Empty() {
			continue
		}
		rects = append(rects, r)
	}
	return rects
}

// FirstMatch tries each classifier in order and returns the hits of the
// first one that finds anything. Nil classifiers are skipped.
type FirstMatch []Classifier

// DetectMultiScaleWithParams satisfies Classifier.
func (f FirstMatch) DetectMultiScaleWithParams(img gocv.Mat, scale float64, minNeighbors, flags int,
	minSize, maxSize image.Point) []image.Rectangle {
	for _, c := range f {
		if c == nil {
			continue
		}
		if rects := c.DetectMultiScaleWithParams(img, scale, minNeighbors, flags, minSize, maxSize); len(rects) > 0 {
			return rects
		}
	}
	return nil
}
