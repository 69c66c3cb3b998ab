package vision

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// BlurSize is the Gaussian kernel used to suppress sensor noise.
const BlurSize = 21

// MotionParams tunes the frame-differencing pipeline.
type MotionParams struct {
	// Threshold is the per-pixel difference above which a pixel counts as changed.
	Threshold float32
	// DilateIterations merges nearby fragments into one blob.
	DilateIterations int
	// MinArea drops blobs whose contour area is smaller.
	MinArea float64
	// MaxArea drops blobs whose bounding box is larger (whole-frame lighting changes).
	MaxArea int
}

// DefaultMotionParams returns the tuning the turret ships with.
func DefaultMotionParams() MotionParams {
	return MotionParams{
		Threshold:        10,
		DilateIterations: 35,
		MinArea:          200,
		MaxArea:          245760,
	}
}

// MotionResult is the outcome of DetectMotion. Original is an untouched
// copy of the input frame; the caller owns it and must Close it. It is only
// set when DetectMotion returns a nil error.
type MotionResult struct {
	Found    bool
	Boxes    []image.Rectangle
	Original gocv.Mat
}

// DetectMotion compares frame against reference and outlines every moving
// blob on frame in place. No state is kept between calls; choosing the next
// reference frame is up to the caller.
func DetectMotion(frame *gocv.Mat, reference gocv.Mat, p MotionParams, c color.RGBA) (MotionResult, error) {
	result := MotionResult{Boxes: []image.Rectangle{}}

	if frame == nil || frame.Empty() {
		return result, errors.Wrap(ErrInvalidInput, "empty frame")
	}
	if reference.Empty() {
		return result, errors.Wrap(ErrInvalidInput, "empty reference frame")
	}
	if frame.Rows() != reference.Rows() || frame.Cols() != reference.Cols() {
		return result, errors.Wrapf(ErrInvalidInput, "frame is %dx%d but reference is %dx%d",
			frame.Cols(), frame.Rows(), reference.Cols(), reference.Rows())
	}

	referenceGray, err := blurredGray(reference)
	if err != nil {
		return result, err
	}
	defer referenceGray.Close()

	gray, err := blurredGray(*frame)
	if err != nil {
		return result, err
	}
	defer gray.Close()

	delta := gocv.NewMat()
	defer delta.Close()
	if err := gocv.AbsDiff(referenceGray, gray, &delta); err != nil {
		return result, errors.Wrap(err, "failed to compute absolute difference")
	}

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(delta, &mask, p.Threshold, 255, gocv.ThresholdBinary)

	if p.DilateIterations > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
		defer kernel.Close()
		for i := 0; i < p.DilateIterations; i++ {
			if err := gocv.Dilate(mask, &mask, kernel); err != nil {
				return result, errors.Wrap(err, "failed to dilate motion mask")
			}
		}
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	result.Original = frame.Clone()

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) < p.MinArea {
			continue
		}

		r := gocv.BoundingRect(contour)
		if ToXYWH(r).Area() > p.MaxArea {
			continue
		}

		if err := gocv.Rectangle(frame, r, c, BoxThickness); err != nil {
			result.Original.Close()
			return MotionResult{Boxes: result.Boxes, Original: gocv.NewMat()}, errors.Wrap(err, "failed to draw motion box")
		}
		result.Boxes = append(result.Boxes, r)
		result.Found = true
	}

	return result, nil
}

// blurredGray converts src to a blurred single-channel image.
func blurredGray(src gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	if src.Channels() > 1 {
		if err := gocv.CvtColor(src, &gray, gocv.ColorBGRToGray); err != nil {
			gray.Close()
			return gray, errors.Wrap(err, "failed to convert image to grayscale")
		}
	} else {
		src.CopyTo(&gray)
	}

	if err := gocv.GaussianBlur(gray, &gray, image.Pt(BlurSize, BlurSize), 0, 0, gocv.BorderDefault); err != nil {
		gray.Close()
		return gray, errors.Wrap(err, "failed to blur image")
	}
	return gray, nil
}
