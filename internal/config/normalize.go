package config

const (
	defaultInputType        = InputSocketCAN
	defaultInterface        = "can0"
	defaultBaud             = 115200
	defaultBitrate          = 500_000
	defaultOutputFormat     = OutputText
	defaultSDOTimeoutMs     = 1000
	defaultReceiveTimeoutMs = 5000
)

// Normalize fills unset fields with defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Input.Type == "" {
		cfg.Input.Type = defaultInputType
	}
	if cfg.Input.Interface == "" {
		cfg.Input.Interface = defaultInterface
	}
	if cfg.Input.ReceiveTimeoutMs == 0 {
		cfg.Input.ReceiveTimeoutMs = defaultReceiveTimeoutMs
	}
	if cfg.Input.Baud == 0 {
		cfg.Input.Baud = defaultBaud
	}
	if cfg.Input.Bitrate == 0 {
		cfg.Input.Bitrate = defaultBitrate
	}
	if cfg.Decoder.SDOTimeoutMs == 0 {
		cfg.Decoder.SDOTimeoutMs = defaultSDOTimeoutMs
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = defaultOutputFormat
	}
}
