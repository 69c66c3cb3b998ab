package sound

import (
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/pkg/errors"
)

// DefaultSampleRate is the rate the speaker is opened with. Samples with a
// different rate are resampled on play.
const DefaultSampleRate = beep.SampleRate(44100)

// resampleQuality trades CPU for fidelity when a sample's rate differs from the speaker's.
const resampleQuality = 4

// Sample is a decoded sound ready to be played.
type Sample interface {
	Path() string
}

// Mixer loads and plays samples. Play must not block until the sample ends.
type Mixer interface {
	Load(path string) (Sample, error)
	Play(s Sample) error
	Close() error
}

type beepSample struct {
	path   string
	buffer *beep.Buffer
}

func (s *beepSample) Path() string {
	return s.path
}

// BeepMixer plays wav files through the system speaker.
type BeepMixer struct {
	rate   beep.SampleRate
	mu     sync.Mutex
	closed bool
}

// NewBeepMixer opens the speaker. Only one BeepMixer should be open per process.
func NewBeepMixer(rate beep.SampleRate) (*BeepMixer, error) {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return nil, errors.Wrapf(ErrAudioInit, "%v", err)
	}
	return &BeepMixer{rate: rate}, nil
}

// Load decodes a wav file fully into memory.
func (m *BeepMixer) Load(path string) (Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sound %s", path)
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to decode sound %s", path)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read sound %s", path)
	}

	return &beepSample{path: path, buffer: buffer}, nil
}

// Play queues the sample on the speaker and returns immediately.
func (m *BeepMixer) Play(s Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	sample, ok := s.(*beepSample)
	if !ok {
		return errors.Errorf("sample %s was not loaded by this mixer", s.Path())
	}

	buffer := sample.buffer
	streamer := buffer.Streamer(0, buffer.Len())
	speaker.Play(beep.Resample(resampleQuality, buffer.Format().SampleRate, m.rate, streamer))
	return nil
}

// Close stops playback and releases the speaker.
func (m *BeepMixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	speaker.Close()
	return nil
}
