package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Naveen474/fake-product-detection/internal/utils"
)

// Duration is a time.Duration that reads "10s" style strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("duration must be a string like \"5s\": %w", err)
		}
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every client setting. Zero values are filled from Default.
type Config struct {
	LedgerURL      string   `json:"ledgerUrl"`
	RequestTimeout Duration `json:"requestTimeout"`
	CACertDir      string   `json:"caCertDir"`

	SerialPort    string   `json:"serialPort"`
	SerialBaud    int      `json:"serialBaud"`
	SignalTimeout Duration `json:"signalTimeout"`

	CameraDevice string   `json:"cameraDevice"`
	FrameWidth   int      `json:"frameWidth"`
	FrameHeight  int      `json:"frameHeight"`
	ScanInterval Duration `json:"scanInterval"`
	ScanTimeout  Duration `json:"scanTimeout"`

	LabelDir string `json:"labelDir"`
	LogFile  string `json:"logFile"`
	LogLevel string `json:"logLevel"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LedgerURL:      "http://localhost:5000/api",
		RequestTimeout: Duration(10 * time.Second),
		SerialBaud:     9600,
		SignalTimeout:  Duration(2 * time.Second),
		CameraDevice:   "/dev/video0",
		FrameWidth:     640,
		FrameHeight:    480,
		ScanInterval:   Duration(10 * time.Millisecond),
		LabelDir:       utils.LabelDir(),
		LogLevel:       "info",
	}
}

// Load reads the JSON config file at path over the defaults, then applies
// a .env file in the working directory and FPD_* environment variables.
// A missing config file or .env is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *Duration) error {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = Duration(d)
		}
		return nil
	}
	num := func(key string, dst *int) error {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}

	str("FPD_LEDGER_URL", &c.LedgerURL)
	str("FPD_CA_CERT_DIR", &c.CACertDir)
	str("FPD_SERIAL_PORT", &c.SerialPort)
	str("FPD_CAMERA_DEVICE", &c.CameraDevice)
	str("FPD_LABEL_DIR", &c.LabelDir)
	str("FPD_LOG_FILE", &c.LogFile)
	str("FPD_LOG_LEVEL", &c.LogLevel)
	for _, err := range []error{
		dur("FPD_REQUEST_TIMEOUT", &c.RequestTimeout),
		dur("FPD_SIGNAL_TIMEOUT", &c.SignalTimeout),
		dur("FPD_SCAN_INTERVAL", &c.ScanInterval),
		dur("FPD_SCAN_TIMEOUT", &c.ScanTimeout),
		num("FPD_SERIAL_BAUD", &c.SerialBaud),
		num("FPD_FRAME_WIDTH", &c.FrameWidth),
		num("FPD_FRAME_HEIGHT", &c.FrameHeight),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// RegisterFlags binds command-line flags to the fields of c. Call after
// Load so flags take precedence over file and environment.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.LedgerURL, "ledger", c.LedgerURL, "ledger service base URL")
	fs.DurationVar((*time.Duration)(&c.RequestTimeout), "request-timeout", c.RequestTimeout.Std(), "timeout for each ledger request")
	fs.StringVar(&c.CACertDir, "ca-certs", c.CACertDir, "directory of PEM CA certificates trusted for the ledger")
	fs.StringVar(&c.SerialPort, "serial", c.SerialPort, "serial port of the verdict indicator (empty disables it)")
	fs.IntVar(&c.SerialBaud, "baud", c.SerialBaud, "indicator line rate")
	fs.DurationVar((*time.Duration)(&c.SignalTimeout), "signal-timeout", c.SignalTimeout.Std(), "timeout for an indicator write")
	fs.StringVar(&c.CameraDevice, "camera", c.CameraDevice, "V4L2 camera device")
	fs.DurationVar((*time.Duration)(&c.ScanInterval), "scan-interval", c.ScanInterval.Std(), "delay between captured frames")
	fs.DurationVar((*time.Duration)(&c.ScanTimeout), "scan-timeout", c.ScanTimeout.Std(), "give up scanning after this long (0 waits until cancelled)")
	fs.StringVar(&c.LabelDir, "labels", c.LabelDir, "directory for generated product QR labels")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "append logs to this file instead of stderr")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.LedgerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("ledger URL %q must be an absolute http(s) URL", c.LedgerURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.SignalTimeout <= 0 {
		return errors.New("signal timeout must be positive")
	}
	if c.ScanInterval <= 0 {
		return errors.New("scan interval must be positive")
	}
	if c.ScanTimeout < 0 {
		return errors.New("scan timeout must not be negative")
	}
	if strings.TrimSpace(c.SerialPort) != "" && c.SerialBaud <= 0 {
		return errors.New("serial baud must be positive")
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return errors.New("frame size must be positive")
	}
	return nil
}
