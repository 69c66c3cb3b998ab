package app

import (
	"context"
	"fmt"

	"watchturret/internal/config"
	"watchturret/internal/logger"
	"watchturret/internal/service"
	"watchturret/internal/service/sound"
	"watchturret/internal/service/storage"
	"watchturret/internal/service/vision"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// WindowName is the title of the preview window.
const WindowName = "watchturret"

type App struct {
	config    *config.Config
	logger    *logger.Logger
	cascades  *vision.Cascades
	sounds    *sound.Categorizer
	snapshots *storage.SnapshotService
	window    *gocv.Window
	manager   *service.Manager
}

// NewApp validates cfg and wires every service. A nil source builds an App
// that can only annotate still images.
func NewApp(cfg *config.Config, source service.FrameSource) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: log}
	if err := a.setup(source); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) setup(source service.FrameSource) error {
	var opts []service.ManagerOption

	if a.config.Mode != config.ModeMotion {
		cascades, err := vision.LoadCascades(a.config, a.logger)
		if err != nil {
			return err
		}
		a.cascades = cascades
	}

	if a.config.SoundDirectory != "" {
		sounds, err := a.setupSounds()
		if err != nil {
			return err
		}
		a.sounds = sounds
		opts = append(opts, service.WithSounds(sounds))
	}

	a.snapshots = storage.NewSnapshotService(a.config, a.logger)
	if a.snapshots.Enabled() {
		opts = append(opts, service.WithSnapshots(a.snapshots))
	}

	if a.config.ShowWindow && source != nil {
		a.window = gocv.NewWindow(WindowName)
		opts = append(opts, service.WithDisplay(a.window))
	}

	manager, err := service.NewManager(source, a.cascades, a.config, a.logger, opts...)
	if err != nil {
		return err
	}
	a.manager = manager
	return nil
}

func (a *App) setupSounds() (*sound.Categorizer, error) {
	mixer, err := sound.NewBeepMixer(sound.DefaultSampleRate)
	if err != nil {
		return nil, err
	}

	sounds := sound.NewCategorizer(mixer, a.config.SoundPPS, sound.WithLogger(a.logger))
	count, err := sounds.AddTree(a.config.SoundDirectory)
	if err != nil {
		sounds.Close()
		return nil, err
	}

	a.logger.Info("Loaded %d sound categories from %s", count, a.config.SoundDirectory)
	if !contains(sounds.Categories(), a.config.SoundCategory) {
		a.logger.Warning("Sound category %q not found in %s", a.config.SoundCategory, a.config.SoundDirectory)
	}
	return sounds, nil
}

// Run processes frames until ctx is cancelled or the source ends.
func (a *App) Run(ctx context.Context) error {
	fmt.Printf("🎯 Watchturret\n")
	fmt.Printf("📷 Device: %s\n", a.config.CaptureDevice)
	fmt.Printf("🔎 Mode: %s\n", config.ModeDescriptions[a.config.Mode])
	if a.snapshots.Enabled() {
		fmt.Printf("📁 Snapshots: %s\n", a.config.SnapshotDirectory)
	}

	err := a.manager.Run(ctx)
	if errors.Is(err, service.ErrSourceClosed) {
		a.logger.Info("Frame source closed")
		return nil
	}
	return err
}

// Annotate runs one detection on the image at in and writes the annotated
// result to out. It reports whether anything was found.
func (a *App) Annotate(in, out string) (bool, error) {
	img := gocv.IMRead(in, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return false, errors.Wrapf(vision.ErrInvalidInput, "cannot read image %s", in)
	}

	detection, err := a.manager.ProcessFrame(img)
	if err != nil {
		return false, err
	}
	defer detection.Frame.Close()

	if out != "" && !gocv.IMWrite(out, detection.Frame) {
		return detection.Found, errors.Errorf("failed to write image %s", out)
	}
	return detection.Found, nil
}

// Close releases every service, the logger last.
func (a *App) Close() error {
	var result *multierror.Error

	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.window != nil {
		if err := a.window.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.sounds != nil {
		if err := a.sounds.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.cascades != nil {
		if err := a.cascades.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
