package vision

import (
	"bytes"
	"encoding/binary"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// acceptAllCascade packs a single depth-1 tree whose every leaf path scores
// pred, so any window passes.
func acceptAllCascade(trees uint32, pred float32) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, 8))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(1))
	_ = binary.Write(&buf, binary.LittleEndian, trees)
	for i := uint32(0); i < trees; i++ {
		buf.Write([]byte{0, 0, 0, 0})
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(0))
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(pred))
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(-1))
	}
	return buf.Bytes()
}

func TestNewPigoClassifier_RejectsGarbage(t *testing.T) {
	_, err := NewPigoClassifier([]byte{1, 2, 3})

	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestNewPigoClassifier_RejectsEmptyCascade(t *testing.T) {
	_, err := NewPigoClassifier(acceptAllCascade(0, 10))

	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestPigoClassifier_Detects(t *testing.T) {
	classifier, err := NewPigoClassifier(acceptAllCascade(1, 10))
	require.NoError(t, err)
	frame := blankFrame(t, 120, 100)

	rects := DetectPattern(frame, classifier, FineWindow)

	assert.NotEmpty(t, rects)
	for _, r := range rects {
		assert.True(t, r.In(image.Rect(0, 0, 120, 100)), "%v is outside the frame", r)
	}
}

func TestPigoClassifier_SmallWindowAndScaleAreClamped(t *testing.T) {
	classifier, err := NewPigoClassifier(acceptAllCascade(1, 10))
	require.NoError(t, err)
	frame := blankFrame(t, 64, 64)

	rects := classifier.DetectMultiScaleWithParams(frame, 1.0, 0, 0, image.Pt(1, 1), image.Point{})

	assert.NotNil(t, rects)
}

func TestPigoClassifier_EmptyImage(t *testing.T) {
	classifier, err := NewPigoClassifier(acceptAllCascade(1, 10))
	require.NoError(t, err)
	empty := gocv.NewMat()
	defer empty.Close()

	rects := classifier.DetectMultiScaleWithParams(empty, ScaleFactor, MinNeighbors, 0, FineWindow, image.Point{})

	assert.NotNil(t, rects)
	assert.Empty(t, rects)
}

func TestLoadPigoClassifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facefinder")
	require.NoError(t, os.WriteFile(path, acceptAllCascade(1, 10), 0o644))

	classifier, err := LoadPigoClassifier(path)
	require.NoError(t, err)
	assert.NotNil(t, classifier)

	_, err = LoadPigoClassifier(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, ErrConfiguration))
}
