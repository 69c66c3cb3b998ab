package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// fakeClassifier returns canned rectangles and records what it was asked.
type fakeClassifier struct {
	rects   []image.Rectangle
	respond func(img gocv.Mat) []image.Rectangle

	calls        int
	sizes        []image.Point
	scales       []float64
	minNeighbors []int
	minSizes     []image.Point
}

func (f *fakeClassifier) DetectMultiScaleWithParams(img gocv.Mat, scale float64, minNeighbors, flags int,
	minSize, maxSize image.Point) []image.Rectangle {
	f.calls++
	f.sizes = append(f.sizes, image.Pt(img.Cols(), img.Rows()))
	f.scales = append(f.scales, scale)
	f.minNeighbors = append(f.minNeighbors, minNeighbors)
	f.minSizes = append(f.minSizes, minSize)

	if f.respond != nil {
		return f.respond(img)
	}
	return f.rects
}

// blankFrame returns a black BGR frame.
func blankFrame(t *testing.T, cols, rows int) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return frame
}

// fillRect paints a solid rectangle covering exactly r.
func fillRect(t *testing.T, frame *gocv.Mat, r image.Rectangle, c color.RGBA) {
	t.Helper()
	require.NoError(t, gocv.Rectangle(frame, r, c, -1))
}

// changedPixels counts pixels that differ between two same-sized frames.
func changedPixels(t *testing.T, a, b gocv.Mat) int {
	t.Helper()
	diff := gocv.NewMat()
	defer diff.Close()
	require.NoError(t, gocv.AbsDiff(a, b, &diff))

	gray := gocv.NewMat()
	defer gray.Close()
	if diff.Channels() > 1 {
		require.NoError(t, gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray))
	} else {
		diff.CopyTo(&gray)
	}
	return gocv.CountNonZero(gray)
}

// bgrAt returns the blue, green and red values of a pixel.
func bgrAt(frame gocv.Mat, row, col int) [3]uint8 {
	v := frame.GetVecbAt(row, col)
	return [3]uint8{v[0], v[1], v[2]}
}
