// Package scan turns camera frames into at most one decoded code payload
// per scan session.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Naveen474/fake-product-detection/internal/models"
)

var (
	// ErrNoPayload ends a scan whose timeout elapsed before any code was decoded.
	ErrNoPayload = errors.New("no code detected")
	// ErrStopped is returned by First when the scan was stopped before any code was decoded.
	ErrStopped = errors.New("scan stopped")
	// ErrCameraUnavailable wraps every failure to acquire the camera.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

const DefaultInterval = 10 * time.Millisecond

// Camera yields frames. Frame returns a nil image when no frame is ready yet.
type Camera interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener acquires the camera for one scan session.
type Opener func() (Camera, error)

// Decoder extracts code payloads from a frame. An empty slice means nothing
// was found.
type Decoder interface {
	Decode(img image.Image) ([]string, error)
}

type Config struct {
	Open    Opener
	Decoder Decoder
	// Interval is the pause between frame grabs.
	Interval time.Duration
	// Timeout bounds a scan session. Zero scans until stopped.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Source starts scan sessions against one camera.
type Source struct {
	open     Opener
	decoder  Decoder
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSource(config Config) *Source {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Decoder == nil {
		config.Decoder = NewQRDecoder()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Source{
		open:     config.Open,
		decoder:  config.Decoder,
		interval: config.Interval,
		timeout:  config.Timeout,
		logger:   config.Logger.With("component", "scan"),
		now:      time.Now,
	}
}

// Start acquires the camera and begins scanning in the background. The
// returned handle must be stopped by the caller, which releases the camera.
func (s *Source) Start(ctx context.Context) (*Handle, error) {
	if s.open == nil {
		return nil, fmt.Errorf("%w: no camera configured", ErrCameraUnavailable)
	}
	camera, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		events: make(chan models.ScanEvent, 1),
		done:   make(chan struct{}),
		cancel: cancel,
		camera: camera,
	}
	s.logger.Debug("scan started", "interval", s.interval, "timeout", s.timeout)
	go s.loop(ctx, h)
	return h, nil
}

func (s *Source) loop(ctx context.Context, h *Handle) {
	defer close(h.done)
	defer close(h.events)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			h.err = ErrNoPayload
			return
		case <-ticker.C:
		}

		img, err := h.camera.Frame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("camera read failed", "error", err)
			h.err = fmt.Errorf("camera read failed: %w", err)
			return
		}
		if img == nil {
			continue
		}
		payloads, err := s.decoder.Decode(img)
		if err != nil {
			s.logger.Debug("frame decode failed", "error", err)
			continue
		}
		payload, ok := firstPayload(payloads)
		if !ok {
			continue
		}
		if len(payloads) > 1 {
			s.logger.Debug("frame held several codes, keeping the first", "count", len(payloads))
		}
		// capacity 1 and a single send: never blocks
		h.events <- models.ScanEvent{RawPayload: payload, CapturedAt: s.now()}
		s.logger.Info("code detected", "payload", payload)
		return
	}
}

func firstPayload(payloads []string) (string, bool) {
	for _, p := range payloads {
		if p = strings.TrimSpace(p); p != "" {
			return p, true
		}
	}
	return "", false
}

// Handle is one running scan session.
type Handle struct {
	events chan models.ScanEvent
	done   chan struct{}
	cancel context.CancelFunc
	camera Camera

	// err is written by the loop before done is closed.
	err error

	stopOnce sync.Once
	closeErr error
}

// Events delivers at most one event and is closed when scanning ends.
func (h *Handle) Events() <-chan models.ScanEvent { return h.events }

// Done is closed once the scan loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns why scanning ended without an event, once it has ended.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Stop cancels scanning, waits for the loop to exit and releases the
// camera. Only the first call does anything.
func (h *Handle) Stop() error {
	h.stopOnce.Do(func() {
		h.cancel()
		<-h.done
		h.closeErr = h.camera.Close()
	})
	return h.closeErr
}

// First waits for the session's event. It returns ErrNoPayload on timeout,
// ErrStopped when the handle was stopped, and ctx.Err() when ctx ends first.
func First(ctx context.Context, h *Handle) (models.ScanEvent, error) {
	select {
	case <-ctx.Done():
		return models.ScanEvent{}, ctx.Err()
	case event, ok := <-h.Events():
		if ok {
			return event, nil
		}
	}
	<-h.done
	if h.err != nil {
		return models.ScanEvent{}, h.err
	}
	return models.ScanEvent{}, ErrStopped
}
