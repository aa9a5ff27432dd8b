package config

import (
	"bytes"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"os"
)

const (
	InputSocketCAN = "socketcan"
	InputSLCAN     = "slcan"
	InputCandump   = "candump"

	OutputText    = "text"
	OutputJSON    = "json"
	OutputHex     = "hex"
	OutputCandump = "candump"
)

// Config is canopendump configuration file contents.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Decoder DecoderConfig `yaml:"decoder"`
	Output  OutputConfig  `yaml:"output"`
	Nodes   NodesConfig   `yaml:"nodes"`

	Debug bool `yaml:"debug"`
}

// ---- INPUT ----

type InputConfig struct {
	// Type is frame source type: socketcan, slcan or candump
	Type string `yaml:"type"`

	// Interface is SocketCAN interface name (socketcan) or interface name written to candump output
	Interface        string `yaml:"interface"`
	ReceiveTimeoutMs int    `yaml:"receive_timeout_ms"`
	SkipErrorFrames  bool   `yaml:"skip_error_frames"`

	// Device is serial port of SLCAN adapter
	Device     string `yaml:"device"`
	Baud       int    `yaml:"baud"`
	Bitrate    int    `yaml:"bitrate"`
	ListenOnly bool   `yaml:"listen_only"`

	// File is candump log file to replay
	File string `yaml:"file"`
}

// ---- DECODER ----

type DecoderConfig struct {
	StrictFunctionCodes bool `yaml:"strict_function_codes"`
	// SDOTimeoutMs is time after which unfinished SDO transfer is discarded
	SDOTimeoutMs int `yaml:"sdo_timeout_ms"`
}

// ---- OUTPUT ----

type OutputConfig struct {
	// Format is frame output format: text, json, hex or candump
	Format string `yaml:"format"`
	// FunctionCodes limits printed frames to given function codes (names like `sdo_rx`, `nmt_ng`). Empty means all.
	FunctionCodes []string `yaml:"function_codes"`
	// Nodes limits printed frames to given node ids. Empty means all.
	Nodes []uint8 `yaml:"nodes"`
	// Transfers enables printing of assembled SDO transfers
	Transfers bool `yaml:"transfers"`
	// TransfersCSV is file path where completed SDO transfers are appended as CSV
	TransfersCSV string `yaml:"transfers_csv"`
}

// ---- NODES ----

type NodesConfig struct {
	// Print enables printing of node list when node monitor detects changes
	Print bool `yaml:"print"`
	// HeartbeatTimeoutMs is time after which node without heartbeat is printed as not alive. Zero disables check.
	HeartbeatTimeoutMs int `yaml:"heartbeat_timeout_ms"`
}

// Load reads configuration from YAML file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(b)
}

// Parse parses configuration from YAML. Unknown fields are rejected.
func Parse(b []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) { // empty document is empty config
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
