package vision

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Result is the outcome of a single-stage detection.
type Result struct {
	Found bool
	Rects []image.Rectangle
}

// Region is a coarse hit together with the fine hits found inside it.
// Confirmations are already translated into full-frame coordinates.
type Region struct {
	Bounds        image.Rectangle
	Confirmations []image.Rectangle
}

// TwoStageResult is the outcome of a coarse-to-fine detection. Regions is
// parallel to Coarse.
type TwoStageResult struct {
	Found   bool
	Coarse  []image.Rectangle
	Regions []Region
}

// Confirmations returns every fine hit across all regions.
func (r TwoStageResult) Confirmations() []image.Rectangle {
	out := []image.Rectangle{}
	for _, region := range r.Regions {
		out = append(out, region.Confirmations...)
	}
	return out
}

// CrossPairs is the legacy flattened pairing: the fine hits of the last
// coarse region, in region-local coordinates, offset by the origin of every
// coarse region in turn. It over-counts when there is more than one coarse
// region; Regions holds the one-to-one grouping.
func (r TwoStageResult) CrossPairs() []image.Rectangle {
	out := []image.Rectangle{}
	if len(r.Regions) == 0 {
		return out
	}
	last := r.Regions[len(r.Regions)-1]
	for _, fine := range last.Confirmations {
		local := fine.Sub(last.Bounds.Min)
		for _, coarse := range r.Coarse {
			out = append(out, Translate(local, coarse.Min))
		}
	}
	return out
}

// Option configures a detector.
type Option func(*options)

type options struct {
	draw         bool
	boxColor     color.RGBA
	confirmColor color.RGBA
}

func defaultOptions() options {
	return options{
		draw:         true,
		boxColor:     DefaultBoxColor,
		confirmColor: ConfirmColor,
	}
}

// WithDraw toggles drawing boxes on the frame.
func WithDraw(draw bool) Option {
	return func(o *options) { o.draw = draw }
}

// WithColors overrides the coarse and confirmation box colors.
func WithColors(box, confirm color.RGBA) Option {
	return func(o *options) {
		o.boxColor = box
		o.confirmColor = confirm
	}
}

// SingleStage runs one classifier over the whole frame.
type SingleStage struct {
	classifier Classifier
	opts       options
}

func NewSingleStage(classifier Classifier, opts ...Option) *SingleStage {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &SingleStage{classifier: classifier, opts: o}
}

// Detect looks for the pattern and, when drawing is enabled, outlines the
// hits on frame in place.
func (d *SingleStage) Detect(frame *gocv.Mat) (Result, error) {
	if frame == nil || frame.Empty() {
		return Result{Rects: []image.Rectangle{}}, errors.Wrap(ErrInvalidInput, "empty frame")
	}

	rects := DetectPattern(*frame, d.classifier, CoarseWindow)
	if d.opts.draw {
		if _, err := DrawBoxes(rects, frame, d.opts.boxColor); err != nil {
			return Result{Rects: rects}, err
		}
	}

	return Result{Found: len(rects) > 0, Rects: rects}, nil
}

// TwoStage confirms each coarse hit with a finer classifier run only
// inside that hit, which discards coarse false positives.
//
// Drawing order on the frame is part of the contract: coarse boxes are drawn
// first, then confirmations on top of them.
type TwoStage struct {
	coarse Classifier
	fine   Classifier
	opts   options
}

func NewTwoStage(coarse, fine Classifier, opts ...Option) *TwoStage {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TwoStage{coarse: coarse, fine: fine, opts: o}
}

// Detect runs the coarse classifier over frame and the fine classifier
// inside every coarse region. Found is true only when at least one region
// was confirmed.
func (d *TwoStage) Detect(frame *gocv.Mat) (TwoStageResult, error) {
	result := TwoStageResult{Coarse: []image.Rectangle{}, Regions: []Region{}}
	if frame == nil || frame.Empty() {
		return result, errors.Wrap(ErrInvalidInput, "empty frame")
	}

	result.Coarse = DetectPattern(*frame, d.coarse, CoarseWindow)
	if d.opts.draw {
		if _, err := DrawBoxes(result.Coarse, frame, d.opts.boxColor); err != nil {
			return result, err
		}
	}

	for _, coarse := range result.Coarse {
		region, err := d.confirm(frame, coarse)
		if err != nil {
			return result, err
		}
		if len(region.Confirmations) > 0 {
			result.Found = true
		}
		result.Regions = append(result.Regions, region)
	}

	return result, nil
}

// confirm crops frame to rows [Min.Y, Max.Y) and columns [Min.X, Max.X) of
// the coarse hit and runs the fine classifier on the crop.
func (d *TwoStage) confirm(frame *gocv.Mat, coarse image.Rectangle) (Region, error) {
	region := Region{Bounds: coarse, Confirmations: []image.Rectangle{}}

	crop := Clip(coarse, image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if crop.Empty() {
		return region, nil
	}

	sub, err := Crop(*frame, crop)
	if err != nil {
		return region, err
	}
	local := DetectPattern(sub, d.fine, FineWindow)
	sub.Close()

	for _, r := range local {
		region.Confirmations = append(region.Confirmations, Translate(r, crop.Min))
	}

	if d.opts.draw {
		if _, err := DrawBoxes(region.Confirmations, frame, d.opts.confirmColor); err != nil {
			return region, err
		}
	}
	return region, nil
}
