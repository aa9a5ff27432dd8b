package config

import (
	"errors"
	"fmt"
	"github.com/aldas/go-canopen-client"
	"github.com/aldas/go-canopen-client/slcan"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	switch cfg.Input.Type {
	case "", InputSocketCAN:
	case InputSLCAN:
		if cfg.Input.Device == "" {
			return errors.New("input: slcan requires device")
		}
		if cfg.Input.Bitrate != 0 {
			if _, err := slcan.BitrateCommand(cfg.Input.Bitrate); err != nil {
				return fmt.Errorf("input: %w", err)
			}
		}
	case InputCandump:
		if cfg.Input.File == "" {
			return errors.New("input: candump requires file")
		}
	default:
		return fmt.Errorf("input: unknown type %q", cfg.Input.Type)
	}
	if cfg.Input.Baud < 0 {
		return errors.New("input: baud must not be negative")
	}
	if cfg.Decoder.SDOTimeoutMs < 0 {
		return errors.New("decoder: sdo_timeout_ms must not be negative")
	}

	switch cfg.Output.Format {
	case "", OutputText, OutputJSON, OutputHex, OutputCandump:
	default:
		return fmt.Errorf("output: unknown format %q", cfg.Output.Format)
	}
	for _, name := range cfg.Output.FunctionCodes {
		if _, ok := canopen.ParseFunctionCode(name); !ok {
			return fmt.Errorf("output: unknown function code %q", name)
		}
	}
	for _, n := range cfg.Output.Nodes {
		if n > 127 {
			return fmt.Errorf("output: node id %d is out of range 0-127", n)
		}
	}

	if cfg.Nodes.HeartbeatTimeoutMs < 0 {
		return errors.New("nodes: heartbeat_timeout_ms must not be negative")
	}
	return nil
}
