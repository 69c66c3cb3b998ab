package sound

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"watchturret/internal/logger"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// SampleExtension is the only file type a category plays.
const SampleExtension = ".wav"

// Categorizer plays a random sample from a named category. Categories map to
// directories whose contents are listed again on every play.
type Categorizer struct {
	mixer      Mixer
	categories map[string]string
	limiter    *rate.Limiter
	now        func() time.Time
	rng        *rand.Rand
	log        *logger.Logger
	closed     bool
	mu         sync.Mutex
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithLogger sets the logger used for play and skip messages.
func WithLogger(log *logger.Logger) Option {
	return func(c *Categorizer) { c.log = log }
}

// WithClock replaces time.Now for the rate limiter.
func WithClock(now func() time.Time) Option {
	return func(c *Categorizer) { c.now = now }
}

// WithRand replaces the random source used to pick samples.
func WithRand(rng *rand.Rand) Option {
	return func(c *Categorizer) { c.rng = rng }
}

// NewCategorizer creates a Categorizer that plays through m and allows at
// most pps rate-limited plays per second. pps <= 0 disables the limit.
func NewCategorizer(m Mixer, pps float64, opts ...Option) *Categorizer {
	limit := rate.Inf
	if pps > 0 {
		limit = rate.Limit(pps)
	}

	c := &Categorizer{
		mixer:      m,
		categories: make(map[string]string),
		limiter:    rate.NewLimiter(limit, 1),
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddCategory links name to dir, replacing any earlier directory. The
// directory is not checked until the category is played.
func (c *Categorizer) AddCategory(name, dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.categories[name] = dir
	return nil
}

// AddTree registers every sub-directory of root as a category named after
// the sub-directory. It returns how many categories were added.
func (c *Categorizer) AddTree(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read sound directory %s", root)
	}

	added := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := c.AddCategory(entry.Name(), filepath.Join(root, entry.Name())); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Categories returns the registered category names in sorted order.
func (c *Categorizer) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Play picks a random wav file from the category and plays it without
// waiting for it to finish. With usePPS set, the call is a no-op returning
// false while the cooldown since the last play has not yet passed. A play
// that happens uses up the cooldown whether or not usePPS was set.
func (c *Categorizer) Play(name string, usePPS bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}

	now := c.now()
	if usePPS && c.limiter.Limit() != rate.Inf && c.limiter.TokensAt(now) < 1 {
		c.log.Debug("Skipping sound for %s, played too recently", name)
		return false, nil
	}

	dir, ok := c.categories[name]
	if !ok {
		return false, errors.Wrapf(ErrCategoryNotFound, "%q", name)
	}

	samples, err := listSamples(dir)
	if err != nil {
		return false, err
	}
	if len(samples) == 0 {
		return false, errors.Wrapf(ErrEmptyCategory, "%q (%s)", name, dir)
	}

	path := samples[c.rng.Intn(len(samples))]
	sample, err := c.mixer.Load(path)
	if err != nil {
		return false, err
	}
	if err := c.mixer.Play(sample); err != nil {
		return false, errors.Wrapf(err, "failed to play %s", path)
	}

	c.restartCooldown(now)
	c.log.Info("Playing %s from category %s", filepath.Base(path), name)
	return true, nil
}

// restartCooldown empties the bucket at now, so the next rate-limited play
// waits a full 1/pps after this one however full the bucket was.
func (c *Categorizer) restartCooldown(now time.Time) {
	limit := c.limiter.Limit()
	if limit == rate.Inf {
		return
	}
	c.limiter = rate.NewLimiter(limit, 1)
	c.limiter.AllowN(now, 1)
}

// Close releases the mixer. Every later call fails with ErrClosed.
func (c *Categorizer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	return errors.Wrap(c.mixer.Close(), "failed to close mixer")
}

// listSamples returns the wav files directly inside dir, sorted by name.
func listSamples(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(ErrCategoryNotFound, "cannot read %s: %v", dir, err)
	}

	var samples []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), SampleExtension) {
			continue
		}
		samples = append(samples, filepath.Join(dir, entry.Name()))
	}
	return samples, nil
}
