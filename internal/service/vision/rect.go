package vision

import "image"

// Rectangles are carried as image.Rectangle everywhere in this package:
// a corner pair with Min inclusive and Max exclusive. gocv uses the same
// form for cascade matches and BoundingRect, so no conversion happens at the
// classifier boundary. Box is the origin+size form used by pigo, logs and
// the motion area check; the helpers below are the only places that cross
// between the two.

// Box is a rectangle expressed as origin plus size.
type Box struct {
	X, Y, W, H int
}

// Area returns W*H.
func (b Box) Area() int {
	return b.W * b.H
}

// FromXYWH converts origin+size to the corner form.
func FromXYWH(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}

// ToXYWH converts a corner-form rectangle to origin+size.
func ToXYWH(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// FromCenter builds a square of the given side length around (col, row).
func FromCenter(row, col, size int) image.Rectangle {
	half := size / 2
	return image.Rect(col-half, row-half, col-half+size, row-half+size)
}

// Translate moves a region-local rectangle into the parent frame by adding
// origin to both corners.
func Translate(r image.Rectangle, origin image.Point) image.Rectangle {
	return r.Add(origin)
}

// Clip restricts r to bounds. The result is empty when they do not overlap.
func Clip(r image.Rectangle, bounds image.Rectangle) image.Rectangle {
	return r.Intersect(bounds)
}
