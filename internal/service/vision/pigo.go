package vision

import (
	"encoding/binary"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// pigoShiftFactor is the window step as a fraction of its size.
	pigoShiftFactor = 0.1
	// pigoIoUThreshold merges overlapping detections.
	pigoIoUThreshold = 0.2
	// DefaultPigoQuality is the score a pigo detection needs to be kept.
	DefaultPigoQuality = 5.0
	// pigoMinWindow keeps the scale loop growing; smaller windows would stall
	// on integer rounding.
	pigoMinWindow = 20
	pigoMinScale  = 1.05
)

// PigoClassifier is a pure Go face detector with the same call shape as a
// gocv cascade. minNeighbors and flags are ignored; detection clustering and
// the quality score take their place.
type PigoClassifier struct {
	detector *pigo.Pigo
	quality  float32
	angle    float64
}

// NewPigoClassifier unpacks a pigo cascade from its binary form.
func NewPigoClassifier(cascade []byte) (classifier *PigoClassifier, err error) {
	// Unpack indexes the packet without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			classifier = nil
			err = errors.Wrapf(ErrConfiguration, "malformed pigo cascade: %v", r)
		}
	}()

	detector, err := pigo.NewPigo().Unpack(cascade)
	if err == nil && detectorIsEmpty(cascade) {
		err = errors.New("cascade has no trees")
	}
	if err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "failed to unpack pigo cascade: %v", err)
	}
	return &PigoClassifier{detector: detector, quality: DefaultPigoQuality}, nil
}

// LoadPigoClassifier reads and unpacks a pigo cascade file.
func LoadPigoClassifier(path string) (*PigoClassifier, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "pigo cascade file not found: %s", path)
	}
	return NewPigoClassifier(cascade)
}

// DetectMultiScaleWithParams satisfies Classifier.
func (p *PigoClassifier) DetectMultiScaleWithParams(img gocv.Mat, scale float64, minNeighbors, flags int,
	minSize, maxSize image.Point) []image.Rectangle {
	rects := []image.Rectangle{}
	if img.Empty() {
		return rects
	}

	gray, err := grayPixels(img)
	if err != nil {
		return rects
	}
	defer gray.Close()

	minWindow := minSize.X
	if minWindow < pigoMinWindow {
		minWindow = pigoMinWindow
	}
	if scale < pigoMinScale {
		scale = pigoMinScale
	}

	rows, cols := gray.Rows(), gray.Cols()
	maxWindow := cols
	if rows > maxWindow {
		maxWindow = rows
	}
	if maxSize.X > 0 && maxSize.X < maxWindow {
		maxWindow = maxSize.X
	}

	params := pigo.CascadeParams{
		MinSize:     minWindow,
		MaxSize:     maxWindow,
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: scale,
		ImageParams: pigo.ImageParams{
			Pixels: gray.ToBytes(),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	detections := p.detector.RunCascade(params, p.angle)
	detections = p.detector.ClusterDetections(detections, pigoIoUThreshold)

	for _, d := range detections {
		if d.Q < p.quality {
			continue
		}
		rects = append(rects, FromCenter(d.Row, d.Col, d.Scale))
	}
	return rects
}

// detectorIsEmpty reports whether the packed cascade declares zero trees.
// pigo cannot classify with an empty cascade.
func detectorIsEmpty(cascade []byte) bool {
	return len(cascade) >= 16 && binary.LittleEndian.Uint32(cascade[12:16]) == 0
}

// grayPixels returns a continuous single-channel copy of img.
func grayPixels(img gocv.Mat) (gocv.Mat, error) {
	if img.Channels() == 1 {
		return img.Clone(), nil
	}
	gray := gocv.NewMat()
	if err := gocv.CvtColor(img, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gray, err
	}
	return gray, nil
}
