package vision

import (
	"io"
	"os"
	"watchturret/internal/config"
	"watchturret/internal/logger"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Cascades holds the classifiers loaded once at process start and shared by
// every detector built from them.
type Cascades struct {
	UpperBody   Classifier
	Face        Classifier
	ProfileFace Classifier

	closers []io.Closer
}

// LoadCascades loads the upper-body, frontal-face and profile-face
// classifiers named in cfg. Every file that is missing or cannot be parsed
// is reported, wrapped in ErrConfiguration.
func LoadCascades(cfg *config.Config, log *logger.Logger) (*Cascades, error) {
	c := &Cascades{}
	var result *multierror.Error

	load := func(name string) Classifier {
		classifier, err := loadHaar(cfg.CascadePath(name))
		if err != nil {
			result = multierror.Append(result, err)
			return nil
		}
		c.closers = append(c.closers, classifier)
		log.Info("Loaded cascade %s", name)
		return classifier
	}

	c.UpperBody = load(cfg.UpperBodyCascade)
	c.ProfileFace = load(cfg.ProfileFaceCascade)

	if cfg.FaceBackend == config.FaceBackendPigo {
		pigo, err := LoadPigoClassifier(cfg.PigoCascade)
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			c.Face = pigo
			log.Info("Loaded pigo face cascade %s", cfg.PigoCascade)
		}
	} else {
		c.Face = load(cfg.FaceCascade)
	}

	if err := result.ErrorOrNil(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Close releases every native classifier.
func (c *Cascades) Close() error {
	var result *multierror.Error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.closers = nil
	return result.ErrorOrNil()
}

func loadHaar(path string) (*gocv.CascadeClassifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "cascade file not found: %s", path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, errors.Wrapf(ErrConfiguration, "failed to parse cascade file: %s", path)
	}
	return &classifier, nil
}
