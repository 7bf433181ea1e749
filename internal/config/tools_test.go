package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

func TestEmptyToolsConfigDefaults(t *testing.T) {
	cfg := EmptyToolsConfig()

	if got := cfg.GetOutputPath(); got != "im.png" {
		t.Errorf("GetOutputPath() = %q, want im.png", got)
	}
	if cfg.GetLumaMin() != 50 || cfg.GetLumaMax() != 200 {
		t.Errorf("luma range = [%d,%d], want [50,200]", cfg.GetLumaMin(), cfg.GetLumaMax())
	}
	if cfg.GetZeroPolicy() != ZeroPolicyAlias {
		t.Errorf("GetZeroPolicy() = %q", cfg.GetZeroPolicy())
	}
	if cfg.GetSerialPort() != "/dev/ttyACM0" {
		t.Errorf("GetSerialPort() = %q", cfg.GetSerialPort())
	}
	if cfg.GetBaudRate() != 115200 {
		t.Errorf("GetBaudRate() = %d", cfg.GetBaudRate())
	}
	if cfg.GetCaptureBytes() != 25600 {
		t.Errorf("GetCaptureBytes() = %d", cfg.GetCaptureBytes())
	}
	if cfg.GetDBPath() != "" {
		t.Errorf("GetDBPath() = %q, want empty", cfg.GetDBPath())
	}
	if cfg.GetAPTWindow() != 512 || cfg.GetAPTCutoff() != 410 || cfg.GetRCTCutoff() != 201 {
		t.Errorf("health defaults = %d/%d/%d", cfg.GetAPTWindow(), cfg.GetAPTCutoff(), cfg.GetRCTCutoff())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadToolsConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	testJSON := `{
  "output_path": "planes.png",
  "luma_min": 10,
  "luma_max": 250,
  "zero_policy": "distinct",
  "db_path": "captures.db"
}`
	if err := os.WriteFile(path, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadToolsConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetOutputPath() != "planes.png" {
		t.Errorf("GetOutputPath() = %q", cfg.GetOutputPath())
	}
	if cfg.GetLumaMin() != 10 || cfg.GetLumaMax() != 250 {
		t.Errorf("luma range = [%d,%d]", cfg.GetLumaMin(), cfg.GetLumaMax())
	}
	if cfg.GetZeroPolicy() != ZeroPolicyDistinct {
		t.Errorf("GetZeroPolicy() = %q", cfg.GetZeroPolicy())
	}
	if cfg.GetDBPath() != "captures.db" {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
	// untouched keys keep defaults
	if cfg.GetBaudRate() != 115200 {
		t.Errorf("GetBaudRate() = %d", cfg.GetBaudRate())
	}
}

func TestLoadToolsConfig_YAML(t *testing.T) {
	for _, ext := range []string{".yaml", ".yml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tools"+ext)
			testYAML := "serial_port: /dev/ttyUSB3\nbaud_rate: 9600\ncapture_bytes: 4096\napt_window: 64\napt_cutoff: 40\nrct_cutoff: 20\n"
			if err := os.WriteFile(path, []byte(testYAML), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}

			cfg, err := LoadToolsConfig(path)
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}
			if cfg.GetSerialPort() != "/dev/ttyUSB3" || cfg.GetBaudRate() != 9600 {
				t.Errorf("serial = %q@%d", cfg.GetSerialPort(), cfg.GetBaudRate())
			}
			if cfg.GetCaptureBytes() != 4096 {
				t.Errorf("GetCaptureBytes() = %d", cfg.GetCaptureBytes())
			}
			if cfg.GetAPTWindow() != 64 || cfg.GetAPTCutoff() != 40 || cfg.GetRCTCutoff() != 20 {
				t.Errorf("health = %d/%d/%d", cfg.GetAPTWindow(), cfg.GetAPTCutoff(), cfg.GetRCTCutoff())
			}
		})
	}
}

func TestLoadToolsConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad extension", "tools.toml", "x = 1", "extension"},
		{"bad json", "bad.json", "{", "failed to parse"},
		{"bad yaml", "bad.yaml", "luma_min: [", "failed to parse"},
		{"invalid values", "inv.json", `{"luma_min": 200, "luma_max": 100}`, "invalid configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadToolsConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadToolsConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadToolsConfig_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	if err := os.WriteFile(path, make([]byte, maxFileSize+1), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToolsConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("err = %v, want too large", err)
	}
}

func TestLoadOrEmpty(t *testing.T) {
	cfg, err := LoadOrEmpty("")
	if err != nil {
		t.Fatalf("LoadOrEmpty(\"\") error: %v", err)
	}
	if cfg.OutputPath != nil {
		t.Error("expected empty config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ToolsConfig
		wantErr bool
	}{
		{"defaults", ToolsConfig{}, false},
		{"negative luma_min", ToolsConfig{LumaMin: ptrInt(-1)}, true},
		{"luma_max too high", ToolsConfig{LumaMax: ptrInt(255)}, true},
		{"luma_max 254", ToolsConfig{LumaMin: ptrInt(0), LumaMax: ptrInt(254)}, false},
		{"inverted range", ToolsConfig{LumaMin: ptrInt(100), LumaMax: ptrInt(100)}, true},
		{"unknown zero policy", ToolsConfig{ZeroPolicy: ptrString("ignore")}, true},
		{"empty output path", ToolsConfig{OutputPath: ptrString("")}, true},
		{"zero baud", ToolsConfig{BaudRate: ptrInt(0)}, true},
		{"negative capture", ToolsConfig{CaptureBytes: ptrInt(-5)}, true},
		{"capture unlimited", ToolsConfig{CaptureBytes: ptrInt(0)}, false},
		{"apt cutoff >= window", ToolsConfig{APTWindow: ptrInt(10), APTCutoff: ptrInt(10)}, true},
		{"tiny apt window", ToolsConfig{APTWindow: ptrInt(1), APTCutoff: ptrInt(1)}, true},
		{"rct cutoff too small", ToolsConfig{RCTCutoff: ptrInt(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
