// Package indicator forwards verification verdicts to an external signal
// device as newline-terminated text lines.
package indicator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.bug.st/serial"

	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

const (
	DefaultBaud    = 9600
	DefaultTimeout = 2 * time.Second

	// boards that reset on open need this long before they read input
	settleDelay = 2 * time.Second
)

var ErrTimeout = errors.New("indicator write timed out")

// Sink receives one line per verdict.
type Sink interface {
	Announce(ctx context.Context, verdict models.Verdict) error
	Close() error
}

// LineSink writes verdict lines to w. Each write is bounded by a timeout
// so a stalled device never blocks the caller for longer than that.
type LineSink struct {
	w       io.WriteCloser
	timeout time.Duration
	logger  *slog.Logger
	// busy holds a token while a write is in flight.
	busy chan struct{}
}

func NewLineSink(w io.WriteCloser, timeout time.Duration, logger *slog.Logger) *LineSink {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LineSink{w: w, timeout: timeout, logger: logger.With("component", "indicator"), busy: make(chan struct{}, 1)}
}

// Announce writes verdict.Line(). Failures come back as
// *utils.HardwareSignalError.
func (s *LineSink) Announce(ctx context.Context, verdict models.Verdict) error {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case s.busy <- struct{}{}:
	case <-timer.C:
		return s.fail(verdict, ErrTimeout)
	case <-ctx.Done():
		return s.fail(verdict, ctx.Err())
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-s.busy }()
		_, err := io.WriteString(s.w, verdict.Line())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return s.fail(verdict, err)
		}
		s.logger.Debug("verdict signalled", "verdict", verdict)
		return nil
	case <-timer.C:
		return s.fail(verdict, ErrTimeout)
	case <-ctx.Done():
		return s.fail(verdict, ctx.Err())
	}
}

func (s *LineSink) fail(verdict models.Verdict, err error) error {
	s.logger.Warn("failed to signal verdict", "verdict", verdict, "error", err)
	return &utils.HardwareSignalError{Err: err}
}

func (s *LineSink) Close() error { return s.w.Close() }

// OpenSerial opens the signal device on a serial port and waits for it to
// settle.
func OpenSerial(ctx context.Context, port string, baud int, timeout time.Duration, logger *slog.Logger) (*LineSink, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		p.Close()
		return nil, ctx.Err()
	}
	return NewLineSink(p, timeout, logger), nil
}

// Ports lists the serial ports present on this machine.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// LogSink records verdicts in the log only. It is used when no signal
// device is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Announce(_ context.Context, verdict models.Verdict) error {
	if s.Logger != nil {
		s.Logger.Info("verdict", "verdict", verdict, "signal", "none")
	}
	return nil
}

func (LogSink) Close() error { return nil }
