// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-version"
	"github.com/spf13/viper"
)

const (
	AppName    = "cwengine"
	ConfigType = "yaml"

	// CurrentSchemaVersion is the newest config schema this binary
	// understands. Validate rejects a config file stamped with a newer
	// schema_version (SPEC_FULL.md §3: "reject a config file whose
	// schema_version is newer than the binary understands").
	CurrentSchemaVersion = "1.0.0"

	DefaultConfig = `# cwengine configuration
schema_version: "1.0.0"

# Audio capture (receive side)
audio_device: "hw:1,0"  # ALSA device (use 'arecord -l' to find)
device_index: -1        # -1 for default device
sample_rate: 48000      # Audio sample rate in Hz
channels: 1             # Number of channels (1=mono)
format: "S16_LE"        # Audio format (S16_LE = 16-bit signed little-endian)
buffer_size: 1024       # Audio capture buffer size

# Tone detection (receive side)
tone_frequency: 600     # Expected CW tone frequency in Hz
block_size: 512         # Goertzel block size (samples per detection window)
overlap_pct: 50         # Block overlap percentage (0-99), higher = smoother but more CPU
threshold: 0.4          # Detection threshold (0.0-1.0), tone magnitude must exceed this
hysteresis: 5           # Consecutive blocks required to confirm state change (reduces noise)
agc_enabled: true       # Enable automatic gain control (normalizes input levels)
agc_decay: 0.9995       # AGC peak decay rate per sample
agc_attack: 0.1         # AGC attack rate (0.0-1.0), how fast to respond to louder signals
agc_warmup_blocks: 10   # Blocks processed before detection is enabled

# Receiver (internal/receiver)
receive_speed_wpm: 15        # Fixed-mode speed, or adaptive-mode seed
receive_tolerance_pct: 50    # Fixed-mode classification tolerance
receive_adaptive: true       # Track sender's speed via moving average
noise_spike_threshold_us: 0  # 0 = derive from dot_ideal/2 at current speed
receive_gap_units: 0         # Farnsworth gap used to extend ics_max in fixed mode

# Generator (internal/generator)
send_speed_wpm: 20             # Send speed in words per minute
frequency_hz: 800              # Sidetone frequency in Hz
volume_pct: 100                # Output volume
gap_units: 0                   # Farnsworth additional gap, in dot-units
weighting_pct: 50               # Dot/dash weighting, 50 = unweighted
tone_slope_shape: "raised_cosine" # linear | sine | raised_cosine | rectangular
tone_slope_duration_us: 5000   # Envelope ramp duration
queue_capacity: 3000           # Tone queue capacity, <= 3000
queue_high_water: 2900         # Enqueue back-pressure threshold
queue_low_water: 1             # Low-water refill-callback threshold

# Sink backend (internal/sink)
backend: "soundcard"    # none | null | console | oss | alsa | pulseaudio | soundcard
device_name: ""         # empty = backend default

# Messaging / metrics (domain stack)
mqtt_broker_url: ""         # empty disables MQTT republishing
mqtt_topic: "cwengine/rx"
metrics_listen_addr: ""     # empty disables the Prometheus HTTP endpoint

# Output
debug: false
`
)

// Settings holds all application configuration.
type Settings struct {
	SchemaVersion string `mapstructure:"schema_version"`

	// Audio capture (receive side)
	AudioDevice string  `mapstructure:"audio_device"`
	DeviceIndex int     `mapstructure:"device_index"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Channels    int     `mapstructure:"channels"`
	Format      string  `mapstructure:"format"`
	BufferSize  int     `mapstructure:"buffer_size"`

	// Tone detection (receive side)
	ToneFrequency   float64 `mapstructure:"tone_frequency"`
	BlockSize       int     `mapstructure:"block_size"`
	OverlapPct      int     `mapstructure:"overlap_pct"`
	Threshold       float64 `mapstructure:"threshold"`
	Hysteresis      int     `mapstructure:"hysteresis"`
	AGCEnabled      bool    `mapstructure:"agc_enabled"`
	AGCDecay        float64 `mapstructure:"agc_decay"`
	AGCAttack       float64 `mapstructure:"agc_attack"`
	AGCWarmupBlocks int     `mapstructure:"agc_warmup_blocks"`

	// Receiver
	ReceiveSpeedWPM       int   `mapstructure:"receive_speed_wpm"`
	ReceiveTolerancePct   int   `mapstructure:"receive_tolerance_pct"`
	ReceiveAdaptive       bool  `mapstructure:"receive_adaptive"`
	NoiseSpikeThresholdUs int64 `mapstructure:"noise_spike_threshold_us"`
	ReceiveGapUnits       int   `mapstructure:"receive_gap_units"`

	// Generator
	SendSpeedWPM        int    `mapstructure:"send_speed_wpm"`
	FrequencyHz         int    `mapstructure:"frequency_hz"`
	VolumePct           int    `mapstructure:"volume_pct"`
	GapUnits            int    `mapstructure:"gap_units"`
	WeightingPct        int    `mapstructure:"weighting_pct"`
	ToneSlopeShape      string `mapstructure:"tone_slope_shape"`
	ToneSlopeDurationUs int64  `mapstructure:"tone_slope_duration_us"`
	QueueCapacity       int    `mapstructure:"queue_capacity"`
	QueueHighWater      int    `mapstructure:"queue_high_water"`
	QueueLowWater       int    `mapstructure:"queue_low_water"`

	// Sink backend
	Backend    string `mapstructure:"backend"`
	DeviceName string `mapstructure:"device_name"`

	// Messaging / metrics
	MQTTBrokerURL     string `mapstructure:"mqtt_broker_url"`
	MQTTTopic         string `mapstructure:"mqtt_topic"`
	MetricsListenAddr string `mapstructure:"metrics_listen_addr"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwengine/
func Init() error {
	viper.SetDefault("schema_version", CurrentSchemaVersion)

	viper.SetDefault("audio_device", "hw:1,0")
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("channels", 1)
	viper.SetDefault("format", "S16_LE")
	viper.SetDefault("buffer_size", 1024)

	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 512)
	viper.SetDefault("overlap_pct", 50)
	viper.SetDefault("threshold", 0.4)
	viper.SetDefault("hysteresis", 5)
	viper.SetDefault("agc_enabled", true)
	viper.SetDefault("agc_decay", 0.9995)
	viper.SetDefault("agc_attack", 0.1)
	viper.SetDefault("agc_warmup_blocks", 10)

	viper.SetDefault("receive_speed_wpm", 15)
	viper.SetDefault("receive_tolerance_pct", 50)
	viper.SetDefault("receive_adaptive", true)
	viper.SetDefault("noise_spike_threshold_us", 0)
	viper.SetDefault("receive_gap_units", 0)

	viper.SetDefault("send_speed_wpm", 20)
	viper.SetDefault("frequency_hz", 800)
	viper.SetDefault("volume_pct", 100)
	viper.SetDefault("gap_units", 0)
	viper.SetDefault("weighting_pct", 50)
	viper.SetDefault("tone_slope_shape", "raised_cosine")
	viper.SetDefault("tone_slope_duration_us", 5000)
	viper.SetDefault("queue_capacity", 3000)
	viper.SetDefault("queue_high_water", 2900)
	viper.SetDefault("queue_low_water", 1)

	viper.SetDefault("backend", "soundcard")
	viper.SetDefault("device_name", "")

	viper.SetDefault("mqtt_broker_url", "")
	viper.SetDefault("mqtt_topic", "cwengine/rx")
	viper.SetDefault("metrics_listen_addr", "")

	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config.
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml.
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	// WatchConfig makes viper reload its values when the file changes.
	// send and receive read their settings once at start-up, so a running
	// session does not pick up the reloaded values.
	viper.WatchConfig()

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings.
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

var validSlopeShapes = map[string]bool{
	"linear": true, "sine": true, "raised_cosine": true, "rectangular": true,
}

var validBackends = map[string]bool{
	"none": true, "null": true, "console": true, "oss": true,
	"alsa": true, "pulseaudio": true, "soundcard": true,
}

// Validate checks that all settings are within acceptable ranges,
// accumulating every failure with errors.Join rather than stopping at the
// first one.
func (s *Settings) Validate() error {
	var errs []error

	if s.SchemaVersion != "" {
		if err := validateSchemaVersion(s.SchemaVersion); err != nil {
			errs = append(errs, err)
		}
	}

	// Audio capture.
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.Channels < 1 || s.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", s.Channels))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}

	// Tone detection.
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.BlockSize&(s.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("block_size should be a power of 2, got %d", s.BlockSize))
	}
	if s.OverlapPct < 0 || s.OverlapPct > 99 {
		errs = append(errs, fmt.Errorf("overlap_pct must be between 0 and 99, got %d", s.OverlapPct))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}
	if s.AGCDecay < 0.99 || s.AGCDecay > 0.99999 {
		errs = append(errs, fmt.Errorf("agc_decay must be between 0.99 and 0.99999, got %v", s.AGCDecay))
	}
	if s.AGCAttack < 0.0 || s.AGCAttack > 1.0 {
		errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
	}
	if s.AGCWarmupBlocks < 0 {
		errs = append(errs, fmt.Errorf("agc_warmup_blocks must be >= 0, got %d", s.AGCWarmupBlocks))
	}

	validFormats := map[string]bool{
		"S16_LE": true, "S16_BE": true, "S24_LE": true, "S24_BE": true,
		"S32_LE": true, "S32_BE": true, "F32_LE": true, "F32_BE": true,
	}
	if !validFormats[s.Format] {
		errs = append(errs, fmt.Errorf("format must be one of S16_LE, S16_BE, S24_LE, S24_BE, S32_LE, S32_BE, F32_LE, F32_BE, got %q", s.Format))
	}
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	// Receiver.
	if s.ReceiveSpeedWPM < 4 || s.ReceiveSpeedWPM > 60 {
		errs = append(errs, fmt.Errorf("receive_speed_wpm must be between 4 and 60, got %d", s.ReceiveSpeedWPM))
	}
	if s.ReceiveTolerancePct < 0 || s.ReceiveTolerancePct > 100 {
		errs = append(errs, fmt.Errorf("receive_tolerance_pct must be between 0 and 100, got %d", s.ReceiveTolerancePct))
	}
	if s.NoiseSpikeThresholdUs < 0 {
		errs = append(errs, fmt.Errorf("noise_spike_threshold_us must be >= 0, got %d", s.NoiseSpikeThresholdUs))
	}
	if s.ReceiveGapUnits < 0 || s.ReceiveGapUnits > 60 {
		errs = append(errs, fmt.Errorf("receive_gap_units must be between 0 and 60, got %d", s.ReceiveGapUnits))
	}

	// Generator.
	if s.SendSpeedWPM < 4 || s.SendSpeedWPM > 60 {
		errs = append(errs, fmt.Errorf("send_speed_wpm must be between 4 and 60, got %d", s.SendSpeedWPM))
	}
	if s.FrequencyHz < 0 || s.FrequencyHz > 4000 {
		errs = append(errs, fmt.Errorf("frequency_hz must be between 0 and 4000, got %d", s.FrequencyHz))
	}
	if s.VolumePct < 0 || s.VolumePct > 100 {
		errs = append(errs, fmt.Errorf("volume_pct must be between 0 and 100, got %d", s.VolumePct))
	}
	if s.GapUnits < 0 || s.GapUnits > 60 {
		errs = append(errs, fmt.Errorf("gap_units must be between 0 and 60, got %d", s.GapUnits))
	}
	if s.WeightingPct < 20 || s.WeightingPct > 80 {
		errs = append(errs, fmt.Errorf("weighting_pct must be between 20 and 80, got %d", s.WeightingPct))
	}
	if !validSlopeShapes[s.ToneSlopeShape] {
		errs = append(errs, fmt.Errorf("tone_slope_shape must be one of linear, sine, raised_cosine, rectangular, got %q", s.ToneSlopeShape))
	}
	if s.ToneSlopeShape == "rectangular" && s.ToneSlopeDurationUs != 0 {
		errs = append(errs, fmt.Errorf("tone_slope_duration_us must be 0 for a rectangular slope, got %d", s.ToneSlopeDurationUs))
	}
	if s.ToneSlopeDurationUs < 0 {
		errs = append(errs, fmt.Errorf("tone_slope_duration_us must be >= 0, got %d", s.ToneSlopeDurationUs))
	}
	if s.QueueCapacity < 1 || s.QueueCapacity > 3000 {
		errs = append(errs, fmt.Errorf("queue_capacity must be between 1 and 3000, got %d", s.QueueCapacity))
	}
	if s.QueueHighWater < 0 || s.QueueHighWater > s.QueueCapacity {
		errs = append(errs, fmt.Errorf("queue_high_water must be between 0 and queue_capacity (%d), got %d", s.QueueCapacity, s.QueueHighWater))
	}
	if s.QueueLowWater < 0 || s.QueueLowWater > s.QueueCapacity {
		errs = append(errs, fmt.Errorf("queue_low_water must be between 0 and queue_capacity (%d), got %d", s.QueueCapacity, s.QueueLowWater))
	}

	// Sink backend.
	if !validBackends[s.Backend] {
		errs = append(errs, fmt.Errorf("backend must be one of none, null, console, oss, alsa, pulseaudio, soundcard, got %q", s.Backend))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// validateSchemaVersion rejects a config file whose schema_version is
// newer than CurrentSchemaVersion, using go-version instead of a brittle
// string-equality check so patch/minor bumps of an understood major
// version don't spuriously fail.
func validateSchemaVersion(configured string) error {
	cv, err := version.NewVersion(configured)
	if err != nil {
		return fmt.Errorf("schema_version %q is not a valid version: %w", configured, err)
	}
	current, err := version.NewVersion(CurrentSchemaVersion)
	if err != nil {
		return fmt.Errorf("internal error parsing CurrentSchemaVersion: %w", err)
	}
	if cv.GreaterThan(current) {
		return fmt.Errorf("schema_version %s is newer than this binary understands (%s)", configured, CurrentSchemaVersion)
	}
	return nil
}
