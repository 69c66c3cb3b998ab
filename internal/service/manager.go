package service

import (
	"context"
	"image"
	"image/color"

	"watchturret/internal/config"
	"watchturret/internal/logger"
	"watchturret/internal/service/vision"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrSourceClosed is returned by Run when the frame source has no more frames.
var ErrSourceClosed = errors.New("frame source closed")

// Keys that stop Run while a display window is open.
const (
	keyQuit   = 'q'
	keyEscape = 27
)

// FrameSource yields frames. *gocv.VideoCapture satisfies it.
type FrameSource interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Display shows annotated frames. *gocv.Window satisfies it.
type Display interface {
	IMShow(img gocv.Mat) error
	WaitKey(delay int) int
}

var (
	_ FrameSource = (*gocv.VideoCapture)(nil)
	_ Display     = (*gocv.Window)(nil)
)

// SoundPlayer plays a random sample from a category.
type SoundPlayer interface {
	Play(name string, usePPS bool) (bool, error)
}

// SnapshotSaver persists annotated frames.
type SnapshotSaver interface {
	Save(frame gocv.Mat, label string) (string, error)
}

// Detection is the outcome of processing one frame. Frame is the annotated
// copy; the caller owns it and must Close it.
type Detection struct {
	Mode  string
	Found bool
	Boxes []image.Rectangle
	Frame gocv.Mat
}

// Manager runs the capture loop: read, pre-process, detect, react.
type Manager struct {
	source    FrameSource
	display   Display
	sounds    SoundPlayer
	snapshots SnapshotSaver
	logger    *logger.Logger

	mode            string
	frameCounter    int
	processEveryNth int // Co którą klatkę przetwarzać
	rotateDegrees   float64
	rotateMode      string
	resizeWidth     int
	soundCategory   string

	single *vision.SingleStage
	double *vision.TwoStage

	motionParams    vision.MotionParams
	motionColor     color.RGBA
	referencePolicy string
	reference       gocv.Mat
}

// ManagerOption configures optional collaborators of a Manager.
type ManagerOption func(*Manager)

// WithDisplay shows every processed frame.
func WithDisplay(d Display) ManagerOption {
	return func(m *Manager) { m.display = d }
}

// WithSounds plays the configured sound category on every detection.
func WithSounds(s SoundPlayer) ManagerOption {
	return func(m *Manager) { m.sounds = s }
}

// WithSnapshots saves every frame with a detection.
func WithSnapshots(s SnapshotSaver) ManagerOption {
	return func(m *Manager) { m.snapshots = s }
}

// NewManager builds the detectors the configured mode needs. cascades may be
// nil in motion mode. source may be nil when only ProcessFrame is used.
func NewManager(source FrameSource, cascades *vision.Cascades, cfg *config.Config, logger *logger.Logger, opts ...ManagerOption) (*Manager, error) {
	boxColor, err := cfg.BoxRGBA()
	if err != nil {
		return nil, err
	}
	confirmColor, err := cfg.ConfirmRGBA()
	if err != nil {
		return nil, err
	}

	everyNth := cfg.ProcessingInterval
	if everyNth < 1 {
		everyNth = 1
	}

	manager := &Manager{
		source:          source,
		logger:          logger,
		mode:            cfg.Mode,
		processEveryNth: everyNth,
		rotateDegrees:   cfg.RotateDegrees,
		rotateMode:      cfg.RotateMode,
		resizeWidth:     cfg.ResizeWidth,
		soundCategory:   cfg.SoundCategory,
		motionParams: vision.MotionParams{
			Threshold:        float32(cfg.MotionThreshold),
			DilateIterations: cfg.MotionDilateIterations,
			MinArea:          cfg.MotionMinArea,
			MaxArea:          cfg.MotionMaxArea,
		},
		motionColor:     boxColor,
		referencePolicy: cfg.MotionReference,
		reference:       gocv.NewMat(),
	}

	colors := vision.WithColors(boxColor, confirmColor)
	switch cfg.Mode {
	case config.ModeMotion:
	case config.ModeUpperBody:
		if cascades == nil || cascades.UpperBody == nil {
			manager.reference.Close()
			return nil, errors.Wrap(vision.ErrConfiguration, "upper body classifier is not loaded")
		}
		manager.single = vision.NewSingleStage(cascades.UpperBody, colors)
	case config.ModeUpperBodyFace:
		if cascades == nil || cascades.UpperBody == nil || cascades.Face == nil {
			manager.reference.Close()
			return nil, errors.Wrap(vision.ErrConfiguration, "upper body and face classifiers are not loaded")
		}
		// profile faces confirm the upper body when no frontal face is found
		fine := vision.FirstMatch{cascades.Face, cascades.ProfileFace}
		manager.double = vision.NewTwoStage(cascades.UpperBody, fine, colors)
	default:
		manager.reference.Close()
		return nil, errors.Wrapf(vision.ErrConfiguration, "unknown mode %q", cfg.Mode)
	}

	for _, opt := range opts {
		opt(manager)
	}

	manager.logger.Info("Manager ready: %s, processing every %d frame(s)", manager.describeMode(), manager.processEveryNth)
	return manager, nil
}

func (m *Manager) describeMode() string {
	if description, ok := config.ModeDescriptions[m.mode]; ok {
		return description
	}
	return m.mode
}

// Run reads frames until ctx is cancelled, the source ends or the quit key
// is pressed on the display. Errors from single frames are logged and the
// loop carries on.
func (m *Manager) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Manager stopped")
			return nil
		default:
		}

		if !m.source.Read(&frame) {
			return ErrSourceClosed
		}
		if frame.Empty() {
			continue
		}

		// Przetwarzaj tylko co N-tą klatkę
		m.frameCounter++
		if m.frameCounter%m.processEveryNth != 0 {
			continue
		}
		m.frameCounter = 0

		detection, err := m.ProcessFrame(frame)
		if err != nil {
			m.logger.Error("Error processing frame: %v", err)
			continue
		}

		quit := m.show(detection.Frame)
		detection.Frame.Close()
		if quit {
			m.logger.Info("Quit requested from display")
			return nil
		}
	}
}

// ProcessFrame runs the configured detection on a copy of frame and reacts
// to a hit with a sound and a snapshot.
func (m *Manager) ProcessFrame(frame gocv.Mat) (Detection, error) {
	prepared, err := m.prepare(frame)
	if err != nil {
		return Detection{}, err
	}

	detection := Detection{Mode: m.mode, Boxes: []image.Rectangle{}}

	switch {
	case m.single != nil:
		result, err := m.single.Detect(&prepared)
		if err != nil {
			prepared.Close()
			return Detection{}, err
		}
		detection.Found, detection.Boxes = result.Found, result.Rects
	case m.double != nil:
		result, err := m.double.Detect(&prepared)
		if err != nil {
			prepared.Close()
			return Detection{}, err
		}
		detection.Found, detection.Boxes = result.Found, result.Confirmations()
	default:
		found, boxes, err := m.detectMotion(&prepared)
		if err != nil {
			prepared.Close()
			return Detection{}, err
		}
		detection.Found, detection.Boxes = found, boxes
	}

	detection.Frame = prepared
	if detection.Found {
		m.react(detection)
	}
	return detection, nil
}

// detectMotion compares frame with the stored reference. The first frame
// only becomes the reference.
func (m *Manager) detectMotion(frame *gocv.Mat) (bool, []image.Rectangle, error) {
	if m.reference.Empty() || m.reference.Rows() != frame.Rows() || m.reference.Cols() != frame.Cols() {
		m.reference.Close()
		m.reference = frame.Clone()
		m.logger.Debug("Motion reference frame set")
		return false, []image.Rectangle{}, nil
	}

	result, err := vision.DetectMotion(frame, m.reference, m.motionParams, m.motionColor)
	if err != nil {
		return false, nil, err
	}

	if m.referencePolicy == config.ReferenceFirst {
		result.Original.Close()
	} else {
		m.reference.Close()
		m.reference = result.Original
	}
	return result.Found, result.Boxes, nil
}

// prepare returns a rotated and resized copy of frame. Canvas rotation keeps
// the frame size, any other mode grows it to fit.
func (m *Manager) prepare(frame gocv.Mat) (gocv.Mat, error) {
	prepared := frame.Clone()

	if m.rotateDegrees != 0 {
		rotate := vision.RotateBound
		if m.rotateMode == config.RotateCanvas {
			rotate = vision.Rotate
		}
		rotated, err := rotate(prepared, m.rotateDegrees)
		prepared.Close()
		if err != nil {
			return gocv.NewMat(), err
		}
		prepared = rotated
	}

	if m.resizeWidth > 0 && prepared.Cols() != m.resizeWidth {
		resized, err := vision.Resize(prepared, m.resizeWidth, 0)
		prepared.Close()
		if err != nil {
			return gocv.NewMat(), err
		}
		prepared = resized
	}

	return prepared, nil
}

// react plays a sound and saves a snapshot. Failures are logged only.
func (m *Manager) react(detection Detection) {
	boxes := make([]vision.Box, 0, len(detection.Boxes))
	for _, r := range detection.Boxes {
		boxes = append(boxes, vision.ToXYWH(r))
	}
	m.logger.Info("%s: found %d box(es) %v", m.describeMode(), len(boxes), boxes)

	if m.sounds != nil {
		if _, err := m.sounds.Play(m.soundCategory, true); err != nil {
			m.logger.Warning("Failed to play sound category %s: %v", m.soundCategory, err)
		}
	}

	if m.snapshots != nil {
		if _, err := m.snapshots.Save(detection.Frame, detection.Mode); err != nil {
			m.logger.Warning("Failed to save snapshot: %v", err)
		}
	}
}

// show displays frame and reports whether the quit key was pressed. A frame
// the display rejects is logged and the loop keeps polling keys.
func (m *Manager) show(frame gocv.Mat) bool {
	if m.display == nil {
		return false
	}
	if err := m.display.IMShow(frame); err != nil {
		m.logger.Warning("Failed to show frame: %v", err)
	}
	key := m.display.WaitKey(1)
	return key == keyQuit || key == keyEscape
}

// Close releases the motion reference and the frame source.
func (m *Manager) Close() error {
	m.reference.Close()
	if m.source == nil {
		return nil
	}
	return m.source.Close()
}
