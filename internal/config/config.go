package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
)

// Detection modes understood by the capture manager.
const (
	ModeMotion        = "motion"
	ModeUpperBody     = "upperbody"
	ModeUpperBodyFace = "upperbody-face"
)

// ModeDescriptions maps every detection mode to a human readable label.
var ModeDescriptions = map[string]string{
	ModeMotion:        "Motion detection",
	ModeUpperBody:     "Upperbody detection",
	ModeUpperBodyFace: "Upperbody and face detection",
}

// Face classifier backends.
const (
	FaceBackendHaar = "haar"
	FaceBackendPigo = "pigo"
)

// Motion reference policies.
const (
	ReferencePrevious = "previous"
	ReferenceFirst    = "first"
)

// Rotation modes. Bound grows the canvas to fit, canvas keeps the frame size.
const (
	RotateBound  = "bound"
	RotateCanvas = "canvas"
)

type Config struct {
	Mode               string
	CaptureDevice      string
	ProcessingInterval int // Co którą klatkę przetwarzać (1=każdą, 3=co trzecią)

	CascadeDirectory   string
	UpperBodyCascade   string
	FaceCascade        string
	ProfileFaceCascade string
	FaceBackend        string
	PigoCascade        string

	MotionThreshold        int
	MotionDilateIterations int
	MotionMinArea          float64
	MotionMaxArea          int
	MotionReference        string

	RotateDegrees float64
	RotateMode    string
	ResizeWidth   int

	BoxColor     string
	ConfirmColor string

	SoundDirectory string
	SoundCategory  string
	SoundPPS       float64

	SnapshotDirectory string
	SnapshotMaxWidth  int
	ShowWindow        bool

	LogDirectory string
	LogLevel     string
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over .env entries.
func Load() *Config {
	_ = godotenv.Load()

	cascadeDir := getEnv("CASCADE_DIR", filepath.Join(".", "resources", "haarcascades"))

	return &Config{
		Mode:               getEnv("MODE", ModeUpperBodyFace),
		CaptureDevice:      getEnv("CAPTURE_DEVICE", "0"),
		ProcessingInterval: getEnvAsInt("PROCESSING_INTERVAL", 1),

		CascadeDirectory:   cascadeDir,
		UpperBodyCascade:   getEnv("UPPERBODY_CASCADE", "haarcascade_mcs_upperbody.xml"),
		FaceCascade:        getEnv("FACE_CASCADE", "haarcascade_frontalface_alt.xml"),
		ProfileFaceCascade: getEnv("PROFILE_FACE_CASCADE", "haarcascade_profileface.xml"),
		FaceBackend:        getEnv("FACE_BACKEND", FaceBackendHaar),
		PigoCascade:        getEnv("PIGO_CASCADE", filepath.Join(".", "resources", "pigo", "facefinder")),

		MotionThreshold:        getEnvAsInt("MOTION_THRESHOLD", 10),
		MotionDilateIterations: getEnvAsInt("MOTION_DILATE_ITERATIONS", 35),
		MotionMinArea:          getEnvAsFloat("MOTION_MIN_AREA", 200),
		MotionMaxArea:          getEnvAsInt("MOTION_MAX_AREA", 245760),
		MotionReference:        getEnv("MOTION_REFERENCE", ReferencePrevious),

		RotateDegrees: getEnvAsFloat("ROTATE_DEGREES", 0),
		RotateMode:    getEnv("ROTATE_MODE", RotateBound),
		ResizeWidth:   getEnvAsInt("RESIZE_WIDTH", 0),

		BoxColor:     getEnv("BOX_COLOR", "#00ff00"),
		ConfirmColor: getEnv("CONFIRM_COLOR", "#ff0000"),

		SoundDirectory: getEnv("SOUND_DIR", ""),
		SoundCategory:  getEnv("SOUND_CATEGORY", "detected"),
		SoundPPS:       getEnvAsFloat("SOUND_PPS", 0.1),

		SnapshotDirectory: getEnv("SNAPSHOT_DIR", ""),
		SnapshotMaxWidth:  getEnvAsInt("SNAPSHOT_MAX_WIDTH", 0),
		ShowWindow:        getEnvAsBool("SHOW_WINDOW", false),

		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// CascadePath joins a cascade file name with the cascade directory.
// Absolute names are returned untouched.
func (c *Config) CascadePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.CascadeDirectory, name)
}

// BoxRGBA returns the color used for coarse and motion boxes.
func (c *Config) BoxRGBA() (color.RGBA, error) {
	return ParseColor(c.BoxColor)
}

// ConfirmRGBA returns the color used for confirmed (fine stage) boxes.
func (c *Config) ConfirmRGBA() (color.RGBA, error) {
	return ParseColor(c.ConfirmColor)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, ok := ModeDescriptions[c.Mode]; !ok {
		result = multierror.Append(result, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if c.ProcessingInterval < 1 {
		result = multierror.Append(result, fmt.Errorf("processing interval must be >= 1, got %d", c.ProcessingInterval))
	}
	if c.FaceBackend != FaceBackendHaar && c.FaceBackend != FaceBackendPigo {
		result = multierror.Append(result, fmt.Errorf("unknown face backend %q", c.FaceBackend))
	}
	if c.MotionThreshold < 0 || c.MotionThreshold > 255 {
		result = multierror.Append(result, fmt.Errorf("motion threshold must be within 0..255, got %d", c.MotionThreshold))
	}
	if c.MotionDilateIterations < 0 {
		result = multierror.Append(result, fmt.Errorf("dilate iterations must be >= 0, got %d", c.MotionDilateIterations))
	}
	if c.MotionMinArea < 0 || float64(c.MotionMaxArea) < c.MotionMinArea {
		result = multierror.Append(result, fmt.Errorf("invalid motion area range [%v, %d]", c.MotionMinArea, c.MotionMaxArea))
	}
	if c.MotionReference != ReferencePrevious && c.MotionReference != ReferenceFirst {
		result = multierror.Append(result, fmt.Errorf("unknown motion reference policy %q", c.MotionReference))
	}
	if c.RotateMode != RotateBound && c.RotateMode != RotateCanvas {
		result = multierror.Append(result, fmt.Errorf("unknown rotate mode %q", c.RotateMode))
	}
	if c.ResizeWidth < 0 {
		result = multierror.Append(result, fmt.Errorf("resize width must be >= 0, got %d", c.ResizeWidth))
	}
	if c.SoundPPS < 0 {
		result = multierror.Append(result, fmt.Errorf("sound plays per second must be >= 0, got %v", c.SoundPPS))
	}
	if _, err := c.BoxRGBA(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := c.ConfirmRGBA(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// ParseColor turns a hex string such as "#00ff00" into an opaque RGBA.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(strings.TrimSpace(hex))
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
