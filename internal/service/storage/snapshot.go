package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"watchturret/internal/config"
	"watchturret/internal/logger"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// SnapshotTimestampLayout prefixes every snapshot file name.
	SnapshotTimestampLayout = "2006-01-02_15-04_05.000"
	// SnapshotQuality is the JPEG quality snapshots are written with.
	SnapshotQuality = 90
)

// SnapshotService writes annotated frames to disk for debugging.
type SnapshotService struct {
	dir      string
	maxWidth int
	now      func() time.Time
	mu       sync.Mutex
	logger   *logger.Logger
}

// NewSnapshotService creates a SnapshotService writing to the configured
// snapshot directory. An empty directory disables it.
func NewSnapshotService(config *config.Config, logger *logger.Logger) *SnapshotService {
	return &SnapshotService{
		dir:      config.SnapshotDirectory,
		maxWidth: config.SnapshotMaxWidth,
		now:      time.Now,
		logger:   logger,
	}
}

// Enabled reports whether Save writes anything.
func (s *SnapshotService) Enabled() bool {
	return s != nil && s.dir != ""
}

// Save encodes frame as JPEG named after the current time and label and
// returns the written path. Frames wider than the configured maximum are
// scaled down first. A disabled service returns an empty path.
func (s *SnapshotService) Save(frame gocv.Mat, label string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if frame.Empty() {
		return "", errors.New("cannot save an empty frame")
	}

	img, err := frame.ToImage()
	if err != nil {
		return "", errors.Wrap(err, "failed to convert frame")
	}
	if s.maxWidth > 0 && img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create snapshot directory")
	}

	filename := fmt.Sprintf("%s_%s.jpg", s.now().Format(SnapshotTimestampLayout), sanitizeLabel(label))
	fullpath := filepath.Join(s.dir, filename)

	if err := imaging.Save(img, fullpath, imaging.JPEGQuality(SnapshotQuality)); err != nil {
		return "", errors.Wrapf(err, "failed to save snapshot %s", filename)
	}

	s.logger.Debug("Saved snapshot %s", filename)
	return fullpath, nil
}

// sanitizeLabel keeps labels usable as a file name fragment.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "frame"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, label)
}
