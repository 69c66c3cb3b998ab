package vision

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Rotate turns src counter-clockwise by degrees around its center. The
// canvas keeps its size, so corners are cut off.
func Rotate(src gocv.Mat, degrees float64) (gocv.Mat, error) {
	dst := gocv.NewMat()
	if src.Empty() {
		return dst, errors.Wrap(ErrInvalidInput, "empty frame")
	}

	w, h := src.Cols(), src.Rows()
	m := gocv.GetRotationMatrix2D(image.Pt(w/2, h/2), degrees, 1.0)
	defer m.Close()

	if err := gocv.WarpAffine(src, &dst, m, image.Pt(w, h)); err != nil {
		dst.Close()
		return gocv.NewMat(), errors.Wrap(err, "failed to rotate image")
	}
	return dst, nil
}

// RotateBound turns src clockwise by degrees and grows the canvas so the
// whole rotated image fits.
func RotateBound(src gocv.Mat, degrees float64) (gocv.Mat, error) {
	dst := gocv.NewMat()
	if src.Empty() {
		return dst, errors.Wrap(ErrInvalidInput, "empty frame")
	}

	w, h := src.Cols(), src.Rows()
	cx, cy := w/2, h/2

	m := gocv.GetRotationMatrix2D(image.Pt(cx, cy), -degrees, 1.0)
	defer m.Close()

	cos := math.Abs(m.GetDoubleAt(0, 0))
	sin := math.Abs(m.GetDoubleAt(0, 1))

	nw := int(float64(h)*sin + float64(w)*cos)
	nh := int(float64(h)*cos + float64(w)*sin)

	// shift so the rotated image is centered on the new canvas
	m.SetDoubleAt(0, 2, m.GetDoubleAt(0, 2)+float64(nw)/2-float64(cx))
	m.SetDoubleAt(1, 2, m.GetDoubleAt(1, 2)+float64(nh)/2-float64(cy))

	if err := gocv.WarpAffine(src, &dst, m, image.Pt(nw, nh)); err != nil {
		dst.Close()
		return gocv.NewMat(), errors.Wrap(err, "failed to rotate image")
	}
	return dst, nil
}

// Resize scales src to width x height. When only one side is given the
// other follows the aspect ratio; when neither is given src is cloned.
// Shrinking uses area interpolation, enlarging uses linear.
func Resize(src gocv.Mat, width, height int) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.Wrap(ErrInvalidInput, "empty frame")
	}
	if width < 0 || height < 0 {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidInput, "negative size %dx%d", width, height)
	}

	w, h := src.Cols(), src.Rows()
	switch {
	case width == 0 && height == 0:
		return src.Clone(), nil
	case height == 0:
		height = int(math.Round(float64(h) * float64(width) / float64(w)))
	case width == 0:
		width = int(math.Round(float64(w) * float64(height) / float64(h)))
	}
	if width == 0 || height == 0 {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidInput, "resize to %dx%d is degenerate", width, height)
	}

	interp := gocv.InterpolationLinear
	if width*height < w*h {
		interp = gocv.InterpolationArea
	}

	dst := gocv.NewMat()
	if err := gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, interp); err != nil {
		dst.Close()
		return gocv.NewMat(), errors.Wrap(err, "failed to resize image")
	}
	return dst, nil
}

// Crop copies rows [r.Min.Y, r.Max.Y) and columns [r.Min.X, r.Max.X) of src.
// r is clipped to the image first.
func Crop(src gocv.Mat, r image.Rectangle) (gocv.Mat, error) {
	clipped := Clip(r.Canon(), image.Rect(0, 0, src.Cols(), src.Rows()))
	if clipped.Empty() {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidInput, "crop %v is outside the %dx%d image", r, src.Cols(), src.Rows())
	}

	region := src.Region(clipped)
	defer region.Close()
	return region.Clone(), nil
}
