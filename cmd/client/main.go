package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Naveen474/fake-product-detection/internal/auth"
	"github.com/Naveen474/fake-product-detection/internal/certs"
	"github.com/Naveen474/fake-product-detection/internal/config"
	"github.com/Naveen474/fake-product-detection/internal/console"
	"github.com/Naveen474/fake-product-detection/internal/files"
	"github.com/Naveen474/fake-product-detection/internal/indicator"
	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/scan"
	"github.com/Naveen474/fake-product-detection/internal/utils"
	"github.com/Naveen474/fake-product-detection/internal/workflow"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	configPath := configPathFromArgs(args)
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("client", pflag.ContinueOnError)
	fs.String("config", configPath, "JSON config file")
	listPorts := fs.Bool("list-ports", false, "list serial ports and exit")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *listPorts {
		return printPorts()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := newHTTPClient(cfg, logger.Logger)
	if err != nil {
		return err
	}
	client, err := ledger.NewClient(ledger.ClientConfig{
		BaseURL:    cfg.LedgerURL,
		HTTPClient: httpClient,
		Timeout:    cfg.RequestTimeout.Std(),
		Logger:     logger.Logger,
	})
	if err != nil {
		return err
	}

	sink := openIndicator(ctx, cfg, logger.Logger)
	defer sink.Close()

	scanner := newScanner(cfg, logger.Logger)

	session := auth.NewManager(client, logger.Logger)
	labels := files.NewLabelStore(cfg.LabelDir)
	c := console.New(console.Config{
		In:           os.Stdin,
		Out:          os.Stdout,
		Session:      session,
		Verifier:     workflow.NewVerifier(client, scanner, sink, session, logger.Logger),
		Transferer:   workflow.NewTransferer(client, scanner, session, logger.Logger),
		Registrar:    workflow.NewRegistrar(client, session, labels, logger.Logger),
		Labels:       labels,
		ReadPassword: passwordReader(),
		Logger:       logger.Logger,
	})
	logger.Info("client started", "ledger", cfg.LedgerURL, "camera", cfg.CameraDevice, "serial", cfg.SerialPort)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// configPathFromArgs finds --config before the full flag set exists, since
// the config file supplies the other flags' defaults.
func configPathFromArgs(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.String("config", filepath.Join(utils.DataDir(), "config.json"), "")
	_ = fs.Parse(args)
	return *path
}

// newScanner returns nil when no camera device is configured or present,
// which leaves product IDs to be typed in.
func newScanner(cfg config.Config, logger *slog.Logger) workflow.Scanner {
	if cfg.CameraDevice == "" {
		return nil
	}
	if _, err := os.Stat(cfg.CameraDevice); err != nil {
		logger.Warn("camera device not found, product IDs must be typed", "device", cfg.CameraDevice, "error", err)
		return nil
	}
	return scan.NewSource(scan.Config{
		Open:     scan.WebcamOpener(cfg.CameraDevice, cfg.FrameWidth, cfg.FrameHeight),
		Interval: cfg.ScanInterval.Std(),
		Timeout:  cfg.ScanTimeout.Std(),
		Logger:   logger,
	})
}

func newHTTPClient(cfg config.Config, logger *slog.Logger) (*http.Client, error) {
	if cfg.CACertDir == "" {
		return &http.Client{}, nil
	}
	pool, skipped, err := certs.NewCertManager(cfg.CACertDir).Pool()
	if err != nil {
		return nil, err
	}
	for _, cert := range skipped {
		logger.Warn("skipping expired CA certificate", "subject", cert.Subject.String(), "not_after", cert.NotAfter)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	return &http.Client{Transport: transport}, nil
}

// openIndicator opens the serial indicator. Without a port, or when it
// cannot be opened, verdicts are only logged.
func openIndicator(ctx context.Context, cfg config.Config, logger *slog.Logger) indicator.Sink {
	if cfg.SerialPort == "" {
		return indicator.LogSink{Logger: logger}
	}
	sink, err := indicator.OpenSerial(ctx, cfg.SerialPort, cfg.SerialBaud, cfg.SignalTimeout.Std(), logger)
	if err != nil {
		logger.Warn("indicator unavailable, verdicts will only be logged", "port", cfg.SerialPort, "error", err)
		return indicator.LogSink{Logger: logger}
	}
	return sink
}

func passwordReader() console.PasswordReader {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(prompt string) (string, error) {
		fmt.Print(prompt)
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(password), nil
	}
}

func printPorts() error {
	ports, err := indicator.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
