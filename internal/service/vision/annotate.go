package vision

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// BoxThickness is the outline width in pixels.
const BoxThickness = 2

var (
	// DefaultBoxColor is used for coarse and motion boxes.
	DefaultBoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	// ConfirmColor is used for fine-stage (face) boxes.
	ConfirmColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// DrawBoxes outlines every rectangle on frame in place and returns frame
// for chaining. Rectangles reaching outside the frame are clipped by OpenCV.
func DrawBoxes(rects []image.Rectangle, frame *gocv.Mat, c color.RGBA) (*gocv.Mat, error) {
	for _, r := range rects {
		if err := gocv.Rectangle(frame, r, c, BoxThickness); err != nil {
			return frame, errors.Wrapf(err, "failed to draw rectangle %v", r)
		}
	}
	return frame, nil
}
