package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Zero-byte policies accepted by zero_policy.
const (
	ZeroPolicyAlias    = "alias"
	ZeroPolicyDistinct = "distinct"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ToolsConfig holds the optional settings shared by the capture tools. Every
// field is a pointer so that omitted keys fall back to the Get* defaults, and
// command-line flags can override whatever the file sets.
type ToolsConfig struct {
	// Renderer
	OutputPath *string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	LumaMin    *int    `json:"luma_min,omitempty" yaml:"luma_min,omitempty"`
	LumaMax    *int    `json:"luma_max,omitempty" yaml:"luma_max,omitempty"`
	ZeroPolicy *string `json:"zero_policy,omitempty" yaml:"zero_policy,omitempty"`

	// Serial capture
	SerialPort   *string `json:"serial_port,omitempty" yaml:"serial_port,omitempty"`
	BaudRate     *int    `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`
	CaptureBytes *int    `json:"capture_bytes,omitempty" yaml:"capture_bytes,omitempty"`
	DBPath       *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`

	// Health tests
	APTWindow *int `json:"apt_window,omitempty" yaml:"apt_window,omitempty"`
	APTCutoff *int `json:"apt_cutoff,omitempty" yaml:"apt_cutoff,omitempty"`
	RCTCutoff *int `json:"rct_cutoff,omitempty" yaml:"rct_cutoff,omitempty"`
}

// EmptyToolsConfig returns a ToolsConfig with all fields unset.
func EmptyToolsConfig() *ToolsConfig {
	return &ToolsConfig{}
}

// LoadToolsConfig loads a ToolsConfig from a .json, .yaml or .yml file.
func LoadToolsConfig(path string) (*ToolsConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyToolsConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrEmpty loads path when it is non-empty, otherwise returns an empty config.
func LoadOrEmpty(path string) (*ToolsConfig, error) {
	if path == "" {
		return EmptyToolsConfig(), nil
	}
	return LoadToolsConfig(path)
}

// Validate checks that the configuration values are valid.
func (c *ToolsConfig) Validate() error {
	lo, hi := c.GetLumaMin(), c.GetLumaMax()
	if lo < 0 {
		return fmt.Errorf("luma_min must be non-negative, got %d", lo)
	}
	// hi+1 must still fit in a byte after scaling
	if hi > 254 {
		return fmt.Errorf("luma_max must be at most 254, got %d", hi)
	}
	if lo >= hi {
		return fmt.Errorf("luma_min (%d) must be less than luma_max (%d)", lo, hi)
	}

	if c.ZeroPolicy != nil {
		switch *c.ZeroPolicy {
		case ZeroPolicyAlias, ZeroPolicyDistinct:
		default:
			return fmt.Errorf("zero_policy must be %q or %q, got %q", ZeroPolicyAlias, ZeroPolicyDistinct, *c.ZeroPolicy)
		}
	}

	if c.OutputPath != nil && *c.OutputPath == "" {
		return fmt.Errorf("output_path must not be empty")
	}
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	if c.CaptureBytes != nil && *c.CaptureBytes < 0 {
		return fmt.Errorf("capture_bytes must be non-negative, got %d", *c.CaptureBytes)
	}

	window, cutoff := c.GetAPTWindow(), c.GetAPTCutoff()
	if window < 2 {
		return fmt.Errorf("apt_window must be at least 2, got %d", window)
	}
	if cutoff < 1 || cutoff >= window {
		return fmt.Errorf("apt_cutoff must be in [1, apt_window), got %d", cutoff)
	}
	if rct := c.GetRCTCutoff(); rct < 2 {
		return fmt.Errorf("rct_cutoff must be at least 2, got %d", rct)
	}
	return nil
}

// GetOutputPath returns the output_path value or the default "im.png".
func (c *ToolsConfig) GetOutputPath() string {
	if c.OutputPath == nil {
		return "im.png"
	}
	return *c.OutputPath
}

// GetLumaMin returns the luma_min value or the default.
func (c *ToolsConfig) GetLumaMin() int {
	if c.LumaMin == nil {
		return 50
	}
	return *c.LumaMin
}

// GetLumaMax returns the luma_max value or the default.
func (c *ToolsConfig) GetLumaMax() int {
	if c.LumaMax == nil {
		return 200
	}
	return *c.LumaMax
}

// GetZeroPolicy returns the zero_policy value or the default.
func (c *ToolsConfig) GetZeroPolicy() string {
	if c.ZeroPolicy == nil {
		return ZeroPolicyAlias
	}
	return *c.ZeroPolicy
}

// GetSerialPort returns the serial_port value or the default.
func (c *ToolsConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return "/dev/ttyACM0"
	}
	return *c.SerialPort
}

// GetBaudRate returns the baud_rate value or the default.
func (c *ToolsConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetCaptureBytes returns the capture_bytes value or the default (160x160).
func (c *ToolsConfig) GetCaptureBytes() int {
	if c.CaptureBytes == nil {
		return 25600
	}
	return *c.CaptureBytes
}

// GetDBPath returns the db_path value. Empty disables session recording.
func (c *ToolsConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetAPTWindow returns the apt_window value or the default.
func (c *ToolsConfig) GetAPTWindow() int {
	if c.APTWindow == nil {
		return 512
	}
	return *c.APTWindow
}

// GetAPTCutoff returns the apt_cutoff value or the default.
func (c *ToolsConfig) GetAPTCutoff() int {
	if c.APTCutoff == nil {
		return 410
	}
	return *c.APTCutoff
}

// GetRCTCutoff returns the rct_cutoff value or the default.
// 201 corresponds to H = 0.1 bits per sample at alpha = 2^-20.
func (c *ToolsConfig) GetRCTCutoff() int {
	if c.RCTCutoff == nil {
		return 201
	}
	return *c.RCTCutoff
}
