package vision

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestSingleStage_NoMatch(t *testing.T) {
	frame := blankFrame(t, 320, 240)

	result, err := NewSingleStage(&fakeClassifier{}).Detect(&frame)

	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Empty(t, result.Rects)
}

func TestSingleStage_FoundAndDrawn(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	classifier := &fakeClassifier{rects: []image.Rectangle{image.Rect(20, 30, 120, 150)}}

	result, err := NewSingleStage(classifier).Detect(&frame)

	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, []image.Rectangle{image.Rect(20, 30, 120, 150)}, result.Rects)
	assert.Equal(t, CoarseWindow, classifier.minSizes[0])
	assert.Equal(t, [3]uint8{0, 255, 0}, bgrAt(frame, 30, 70))
}

func TestSingleStage_WithoutDrawing(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	classifier := &fakeClassifier{rects: []image.Rectangle{image.Rect(20, 30, 120, 150)}}

	result, err := NewSingleStage(classifier, WithDraw(false)).Detect(&frame)

	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Zero(t, changedPixels(t, blankFrame(t, 320, 240), frame))
}

func TestSingleStage_EmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()

	_, err := NewSingleStage(&fakeClassifier{}).Detect(&frame)

	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestTwoStage_NoCoarseHits(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	fine := &fakeClassifier{rects: []image.Rectangle{image.Rect(0, 0, 10, 10)}}

	result, err := NewTwoStage(&fakeClassifier{}, fine).Detect(&frame)

	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Empty(t, result.Coarse)
	assert.Empty(t, result.Regions)
	assert.Empty(t, result.Confirmations())
	assert.Zero(t, fine.calls, "no cropping without coarse hits")
}

func TestTwoStage_CoarseOnlyIsNotFound(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	coarse := &fakeClassifier{rects: []image.Rectangle{image.Rect(100, 50, 200, 150)}}
	fine := &fakeClassifier{}

	result, err := NewTwoStage(coarse, fine).Detect(&frame)

	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Len(t, result.Coarse, 1)
	require.Len(t, result.Regions, 1)
	assert.Empty(t, result.Regions[0].Confirmations)
	assert.Equal(t, 1, fine.calls)
}

func TestTwoStage_CropUsesCornerBounds(t *testing.T) {
	// The coarse hit carries x1,y1,x2,y2; the crop is rows [y1,y2) and
	// columns [x1,x2), not [y1,y1+y2) as an origin+size reading would give.
	frame := blankFrame(t, 320, 240)
	coarse := &fakeClassifier{rects: []image.Rectangle{image.Rect(100, 50, 200, 150)}}
	fine := &fakeClassifier{}

	_, err := NewTwoStage(coarse, fine).Detect(&frame)

	require.NoError(t, err)
	require.Len(t, fine.sizes, 1)
	assert.Equal(t, image.Pt(100, 100), fine.sizes[0])
	assert.Equal(t, FineWindow, fine.minSizes[0])
}

func TestTwoStage_CropFromOriginAndSize(t *testing.T) {
	// A classifier reporting origin+size has to be converted at its boundary;
	// the crop then covers exactly w x h pixels.
	frame := blankFrame(t, 320, 240)
	coarse := &fakeClassifier{rects: []image.Rectangle{FromXYWH(100, 50, 60, 80)}}
	fine := &fakeClassifier{}

	_, err := NewTwoStage(coarse, fine).Detect(&frame)

	require.NoError(t, err)
	require.Len(t, fine.sizes, 1)
	assert.Equal(t, image.Pt(60, 80), fine.sizes[0])
}

func TestTwoStage_FineStageGetsClippedCopy(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	coarse := &fakeClassifier{rects: []image.Rectangle{image.Rect(280, 200, 360, 260)}}
	continuous := false
	fine := &fakeClassifier{respond: func(img gocv.Mat) []image.Rectangle {
		continuous = img.IsContinuous()
		return nil
	}}

	_, err := NewTwoStage(coarse, fine).Detect(&frame)

	require.NoError(t, err)
	require.Len(t, fine.sizes, 1)
	assert.Equal(t, image.Pt(40, 40), fine.sizes[0])
	assert.True(t, continuous, "the crop is copied out of the frame")
}

func TestTwoStage_TranslatesConfirmations(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	coarse := &fakeClassifier{rects: []image.Rectangle{image.Rect(100, 50, 200, 150)}}
	fine := &fakeClassifier{rects: []image.Rectangle{image.Rect(5, 5, 20, 20)}}

	result, err := NewTwoStage(coarse, fine).Detect(&frame)

	require.NoError(t, err)
	assert.True(t, result.Found)
	require.Len(t, result.Regions, 1)
	assert.Equal(t, image.Rect(100, 50, 200, 150), result.Regions[0].Bounds)
	assert.Equal(t, []image.Rectangle{image.Rect(105, 55, 120, 70)}, result.Regions[0].Confirmations)
	assert.Equal(t, []image.Rectangle{image.Rect(105, 55, 120, 70)}, result.Confirmations())

	// coarse box in green, confirmation in red on the full frame
	assert.Equal(t, [3]uint8{0, 255, 0}, bgrAt(frame, 50, 150))
	assert.Equal(t, [3]uint8{0, 0, 255}, bgrAt(frame, 55, 112))
}

func TestTwoStage_FoundWhenAnyRegionConfirms(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	coarse := &fakeClassifier{rects: []image.Rectangle{
		image.Rect(10, 10, 110, 110),   // 100x100, has a face
		image.Rect(200, 100, 260, 160), // 60x60, no face
	}}
	fine := &fakeClassifier{respond: func(img gocv.Mat) []image.Rectangle {
		if img.Cols() == 100 {
			return []image.Rectangle{image.Rect(30, 30, 60, 60)}
		}
		return nil
	}}

	result, err := NewTwoStage(coarse, fine).Detect(&frame)

	require.NoError(t, err)
	assert.True(t, result.Found, "the last region has no face but the first does")
	require.Len(t, result.Regions, 2)
	assert.Len(t, result.Regions[0].Confirmations, 1)
	assert.Empty(t, result.Regions[1].Confirmations)
}

func TestTwoStage_DegenerateCoarseHit(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	coarse := &fakeClassifier{rects: []image.Rectangle{
		{Min: image.Pt(100, 50), Max: image.Pt(100, 150)},
		{Min: image.Pt(100, 50), Max: image.Pt(200, 50)},
	}}
	fine := &fakeClassifier{rects: []image.Rectangle{image.Rect(0, 0, 5, 5)}}

	result, err := NewTwoStage(coarse, fine).Detect(&frame)

	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Zero(t, fine.calls)
}

func TestTwoStageResult_CrossPairs(t *testing.T) {
	frame := blankFrame(t, 320, 240)
	coarse := &fakeClassifier{rects: []image.Rectangle{
		image.Rect(10, 10, 110, 110),
		image.Rect(200, 100, 260, 160),
	}}
	fine := &fakeClassifier{respond: func(img gocv.Mat) []image.Rectangle {
		if img.Cols() == 100 {
			return []image.Rectangle{image.Rect(30, 30, 60, 60)}
		}
		return []image.Rectangle{image.Rect(5, 5, 20, 20), image.Rect(25, 25, 40, 40)}
	}}

	result, err := NewTwoStage(coarse, fine).Detect(&frame)
	require.NoError(t, err)

	assert.Len(t, result.Confirmations(), 3)
	assert.Equal(t, []image.Rectangle{
		image.Rect(15, 15, 30, 30),
		image.Rect(205, 105, 220, 120),
		image.Rect(35, 35, 50, 50),
		image.Rect(225, 125, 240, 140),
	}, result.CrossPairs())
}

func TestTwoStageResult_CrossPairsEmpty(t *testing.T) {
	assert.Empty(t, TwoStageResult{}.CrossPairs())
}

