package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestDetectPattern_NoMatch(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	classifier := &fakeClassifier{}

	rects := DetectPattern(frame, classifier, CoarseWindow)

	require.NotNil(t, rects)
	assert.Empty(t, rects)
	assert.Equal(t, 1, classifier.calls)
}

func TestDetectPattern_PassesFixedTuning(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	classifier := &fakeClassifier{}

	DetectPattern(frame, classifier, image.Pt(25, 25))

	require.Equal(t, 1, classifier.calls)
	assert.Equal(t, 1.2, classifier.scales[0])
	assert.Equal(t, 3, classifier.minNeighbors[0])
	assert.Equal(t, image.Pt(25, 25), classifier.minSizes[0])
}

func TestDetectPattern_ClipsToFrame(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	classifier := &fakeClassifier{rects: []image.Rectangle{
		image.Rect(10, 10, 70, 90),
		image.Rect(-20, 200, 40, 300),
		image.Rect(400, 400, 460, 460),
	}}

	rects := DetectPattern(frame, classifier, CoarseWindow)

	assert.Equal(t, []image.Rectangle{
		image.Rect(10, 10, 70, 90),
		image.Rect(0, 200, 40, 240),
	}, rects)
}

func TestDetectPattern_EmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()
	classifier := &fakeClassifier{rects: []image.Rectangle{image.Rect(0, 0, 10, 10)}}

	rects := DetectPattern(frame, classifier, CoarseWindow)

	assert.Empty(t, rects)
	assert.Zero(t, classifier.calls)
}

func TestDetectPattern_DoesNotMutateFrame(t *testing.T) {
	frame := blankFrame(t, 120, 120)
	fillRect(t, &frame, image.Rect(20, 20, 60, 60), white)
	before := frame.Clone()
	defer before.Close()

	DetectPattern(frame, &fakeClassifier{rects: []image.Rectangle{image.Rect(20, 20, 60, 60)}}, CoarseWindow)

	assert.Zero(t, changedPixels(t, before, frame))
}

func TestFirstMatch(t *testing.T) {
	frame := blankFrame(t, 120, 120)
	frontal := &fakeClassifier{}
	profile := &fakeClassifier{rects: []image.Rectangle{image.Rect(10, 10, 40, 40)}}
	never := &fakeClassifier{rects: []image.Rectangle{image.Rect(0, 0, 5, 5)}}

	rects := DetectPattern(frame, FirstMatch{nil, frontal, profile, never}, FineWindow)

	assert.Equal(t, []image.Rectangle{image.Rect(10, 10, 40, 40)}, rects)
	assert.Equal(t, 1, frontal.calls)
	assert.Equal(t, 1, profile.calls)
	assert.Zero(t, never.calls)
}
