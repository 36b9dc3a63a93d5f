package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// Record policies accepted by record_policy.
const (
	RecordPolicyBoth = "both"
	RecordPolicyLast = "last"
)

// Vertex is a region-of-interest corner expressed as fractions of the frame
// width and height, so one polygon serves every resolution.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PipelineConfig holds the tunable parameters for every pipeline stage.
// Fields left out of a JSON file keep their defaults through the Get* methods,
// so partial configs are safe.
type PipelineConfig struct {
	// Region of interest (four vertices, fractions of width/height)
	ROIVertices []Vertex `json:"roi_vertices,omitempty"`

	// Edge detection
	CannyLow  *float64 `json:"canny_low,omitempty"`
	CannyHigh *float64 `json:"canny_high,omitempty"`

	// Probabilistic Hough transform
	HoughRho           *float64 `json:"hough_rho,omitempty"`
	HoughThetaDeg      *float64 `json:"hough_theta_deg,omitempty"`
	HoughThreshold     *int     `json:"hough_threshold,omitempty"`
	HoughMinLineLength *float64 `json:"hough_min_line_length,omitempty"`
	HoughMaxLineGap    *float64 `json:"hough_max_line_gap,omitempty"`

	// Slope classification and line normalisation
	SlopeCutoff     *float64 `json:"slope_cutoff,omitempty"`
	LineTopFraction *float64 `json:"line_top_fraction,omitempty"`
	LineThickness   *int     `json:"line_thickness,omitempty"`
	RecordPolicy    *string  `json:"record_policy,omitempty"` // "both" or "last"

	// Progress output
	ProgressEvery *int `json:"progress_every,omitempty"`

	// Telemetry capture
	TelemetryRateHz   *float64 `json:"telemetry_rate_hz,omitempty"`
	HeartbeatInterval *string  `json:"heartbeat_interval,omitempty"` // duration string like "1s"

	// Synchronisation
	BrakeThreshold     *float64 `json:"brake_threshold,omitempty"`
	IntensityThreshold *float64 `json:"intensity_threshold,omitempty"`
	JoinTolerance      *string  `json:"join_tolerance,omitempty"` // duration string like "50ms"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultROIVertices is the lower-middle trapezoid where lane markings are
// expected: bottom-left, top-left, top-right, bottom-right.
func DefaultROIVertices() []Vertex {
	return []Vertex{
		{X: 0.15, Y: 0.70},
		{X: 0.40, Y: 0.52},
		{X: 0.60, Y: 0.52},
		{X: 0.85, Y: 0.70},
	}
}

// EmptyPipelineConfig returns a config with every field unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every field explicitly set to
// its default value.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		ROIVertices:        DefaultROIVertices(),
		CannyLow:           ptrFloat64(100),
		CannyHigh:          ptrFloat64(200),
		HoughRho:           ptrFloat64(2),
		HoughThetaDeg:      ptrFloat64(1),
		HoughThreshold:     ptrInt(100),
		HoughMinLineLength: ptrFloat64(50),
		HoughMaxLineGap:    ptrFloat64(50),
		SlopeCutoff:        ptrFloat64(0.5),
		LineTopFraction:    ptrFloat64(0.6),
		LineThickness:      ptrInt(8),
		RecordPolicy:       ptrString(RecordPolicyBoth),
		ProgressEvery:      ptrInt(20),
		TelemetryRateHz:    ptrFloat64(100),
		HeartbeatInterval:  ptrString("1s"),
		BrakeThreshold:     ptrFloat64(75),
		IntensityThreshold: ptrFloat64(50),
		JoinTolerance:      ptrString("50ms"),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty and otherwise returns an
// empty config whose getters yield the defaults.
func LoadOrDefault(path string) (*PipelineConfig, error) {
	if path == "" {
		return EmptyPipelineConfig(), nil
	}
	return LoadPipelineConfig(path)
}

// Validate checks that the configuration values are usable.
func (c *PipelineConfig) Validate() error {
	if c.ROIVertices != nil {
		if len(c.ROIVertices) != 4 {
			return fmt.Errorf("roi_vertices must have exactly 4 vertices, got %d", len(c.ROIVertices))
		}
		for i, v := range c.ROIVertices {
			if v.X < 0 || v.X > 1 || v.Y < 0 || v.Y > 1 {
				return fmt.Errorf("roi_vertices[%d] must be fractions in [0,1], got (%g, %g)", i, v.X, v.Y)
			}
		}
	}

	if c.GetCannyLow() < 0 || c.GetCannyHigh() < c.GetCannyLow() {
		return fmt.Errorf("canny thresholds must satisfy 0 <= low <= high, got %g/%g", c.GetCannyLow(), c.GetCannyHigh())
	}

	if c.GetHoughRho() <= 0 {
		return fmt.Errorf("hough_rho must be positive, got %g", c.GetHoughRho())
	}
	if c.GetHoughThetaDeg() <= 0 {
		return fmt.Errorf("hough_theta_deg must be positive, got %g", c.GetHoughThetaDeg())
	}
	if c.GetHoughThreshold() < 1 {
		return fmt.Errorf("hough_threshold must be at least 1, got %d", c.GetHoughThreshold())
	}

	if c.GetSlopeCutoff() < 0 {
		return fmt.Errorf("slope_cutoff must be non-negative, got %g", c.GetSlopeCutoff())
	}
	if f := c.GetLineTopFraction(); f <= 0 || f >= 1 {
		return fmt.Errorf("line_top_fraction must be in (0,1), got %g", f)
	}

	if c.RecordPolicy != nil {
		switch *c.RecordPolicy {
		case RecordPolicyBoth, RecordPolicyLast:
		default:
			return fmt.Errorf("record_policy must be %q or %q, got %q", RecordPolicyBoth, RecordPolicyLast, *c.RecordPolicy)
		}
	}

	if c.GetTelemetryRateHz() <= 0 {
		return fmt.Errorf("telemetry_rate_hz must be positive, got %g", c.GetTelemetryRateHz())
	}

	if c.HeartbeatInterval != nil && *c.HeartbeatInterval != "" {
		if _, err := time.ParseDuration(*c.HeartbeatInterval); err != nil {
			return fmt.Errorf("invalid heartbeat_interval '%s': %w", *c.HeartbeatInterval, err)
		}
	}
	if c.JoinTolerance != nil && *c.JoinTolerance != "" {
		if _, err := time.ParseDuration(*c.JoinTolerance); err != nil {
			return fmt.Errorf("invalid join_tolerance '%s': %w", *c.JoinTolerance, err)
		}
	}

	return nil
}

// GetROIVertices returns the configured region of interest or the default.
func (c *PipelineConfig) GetROIVertices() []Vertex {
	if len(c.ROIVertices) == 0 {
		return DefaultROIVertices()
	}
	out := make([]Vertex, len(c.ROIVertices))
	copy(out, c.ROIVertices)
	return out
}

// GetCannyLow returns the lower Canny gradient threshold.
func (c *PipelineConfig) GetCannyLow() float64 {
	if c.CannyLow == nil {
		return 100
	}
	return *c.CannyLow
}

// GetCannyHigh returns the upper Canny gradient threshold.
func (c *PipelineConfig) GetCannyHigh() float64 {
	if c.CannyHigh == nil {
		return 200
	}
	return *c.CannyHigh
}

// GetHoughRho returns the accumulator distance resolution in pixels.
func (c *PipelineConfig) GetHoughRho() float64 {
	if c.HoughRho == nil {
		return 2
	}
	return *c.HoughRho
}

// GetHoughThetaDeg returns the accumulator angular resolution in degrees.
func (c *PipelineConfig) GetHoughThetaDeg() float64 {
	if c.HoughThetaDeg == nil {
		return 1
	}
	return *c.HoughThetaDeg
}

// GetHoughThreshold returns the accumulator vote threshold.
func (c *PipelineConfig) GetHoughThreshold() int {
	if c.HoughThreshold == nil {
		return 100
	}
	return *c.HoughThreshold
}

// GetHoughMinLineLength returns the minimum segment length in pixels.
func (c *PipelineConfig) GetHoughMinLineLength() float64 {
	if c.HoughMinLineLength == nil {
		return 50
	}
	return *c.HoughMinLineLength
}

// GetHoughMaxLineGap returns the maximum gap bridged within one segment.
func (c *PipelineConfig) GetHoughMaxLineGap() float64 {
	if c.HoughMaxLineGap == nil {
		return 50
	}
	return *c.HoughMaxLineGap
}

// GetSlopeCutoff returns the absolute slope below which segments are noise.
func (c *PipelineConfig) GetSlopeCutoff() float64 {
	if c.SlopeCutoff == nil {
		return 0.5
	}
	return *c.SlopeCutoff
}

// GetLineTopFraction returns the fraction of frame height where fitted lines end.
func (c *PipelineConfig) GetLineTopFraction() float64 {
	if c.LineTopFraction == nil {
		return 0.6
	}
	return *c.LineTopFraction
}

// GetLineThickness returns the annotation stroke width.
func (c *PipelineConfig) GetLineThickness() int {
	if c.LineThickness == nil {
		return 8
	}
	return *c.LineThickness
}

// GetRecordPolicy returns the lane record persistence policy.
func (c *PipelineConfig) GetRecordPolicy() string {
	if c.RecordPolicy == nil || *c.RecordPolicy == "" {
		return RecordPolicyBoth
	}
	return *c.RecordPolicy
}

// GetProgressEvery returns how many frames pass between progress lines.
func (c *PipelineConfig) GetProgressEvery() int {
	if c.ProgressEvery == nil || *c.ProgressEvery < 1 {
		return 20
	}
	return *c.ProgressEvery
}

// GetTelemetryRateHz returns the capture polling rate.
func (c *PipelineConfig) GetTelemetryRateHz() float64 {
	if c.TelemetryRateHz == nil {
		return 100
	}
	return *c.TelemetryRateHz
}

// GetTelemetryInterval returns the capture polling period derived from the rate.
func (c *PipelineConfig) GetTelemetryInterval() time.Duration {
	rate := c.GetTelemetryRateHz()
	if rate <= 0 {
		rate = 100
	}
	return time.Duration(float64(time.Second) / rate)
}

// GetHeartbeatInterval parses and returns HeartbeatInterval.
func (c *PipelineConfig) GetHeartbeatInterval() time.Duration {
	if c.HeartbeatInterval == nil || *c.HeartbeatInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.HeartbeatInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// GetBrakeThreshold returns the telemetry brake spike threshold.
func (c *PipelineConfig) GetBrakeThreshold() float64 {
	if c.BrakeThreshold == nil {
		return 75
	}
	return *c.BrakeThreshold
}

// GetIntensityThreshold returns the secondary series spike threshold.
func (c *PipelineConfig) GetIntensityThreshold() float64 {
	if c.IntensityThreshold == nil {
		return 50
	}
	return *c.IntensityThreshold
}

// GetJoinTolerance parses and returns JoinTolerance.
func (c *PipelineConfig) GetJoinTolerance() time.Duration {
	if c.JoinTolerance == nil || *c.JoinTolerance == "" {
		return 50 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.JoinTolerance)
	if err != nil {
		return 50 * time.Millisecond
	}
	return d
}
