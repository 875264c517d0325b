package scan_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qrgen "github.com/skip2/go-qrcode"

	"github.com/Naveen474/fake-product-detection/internal/scan"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

type fakeCamera struct {
	frames atomic.Int32
	closed atomic.Int32
	err    error
}

func (c *fakeCamera) Frame(ctx context.Context) (image.Image, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.frames.Add(1)
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

func (c *fakeCamera) Close() error {
	c.closed.Add(1)
	return nil
}

// scriptedDecoder returns script[i] for the i-th frame and nothing afterwards.
type scriptedDecoder struct {
	mu     sync.Mutex
	calls  int
	script [][]string
}

func (d *scriptedDecoder) Decode(image.Image) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() { d.calls++ }()
	if d.calls < len(d.script) {
		return d.script[d.calls], nil
	}
	return nil, nil
}

func newSource(camera scan.Camera, decoder scan.Decoder, timeout time.Duration) *scan.Source {
	return scan.NewSource(scan.Config{
		Open:     func() (scan.Camera, error) { return camera, nil },
		Decoder:  decoder,
		Interval: time.Millisecond,
		Timeout:  timeout,
		Logger:   utils.Discard(),
	})
}

func TestSourceDeliversExactlyOneEvent(t *testing.T) {
	camera := &fakeCamera{}
	decoder := &scriptedDecoder{script: [][]string{nil, {""}, {"P-1", "P-2"}, {"P-3"}}}
	h, err := newSource(camera, decoder, 0).Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Stop()

	var got []string
	for event := range h.Events() {
		got = append(got, event.RawPayload)
	}
	if len(got) != 1 || got[0] != "P-1" {
		t.Fatalf("events = %v, want [P-1]", got)
	}
	if h.Err() != nil {
		t.Fatalf("Err = %v", h.Err())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	camera := &fakeCamera{}
	h, err := newSource(camera, &scriptedDecoder{}, 0).Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if n := camera.closed.Load(); n != 1 {
		t.Fatalf("camera closed %d times, want 1", n)
	}
	if _, ok := <-h.Events(); ok {
		t.Fatal("events should be closed after Stop")
	}
	if _, err := scan.First(context.Background(), h); !errors.Is(err, scan.ErrStopped) {
		t.Fatalf("First after Stop = %v, want ErrStopped", err)
	}
}

func TestStopAfterEventReleasesCamera(t *testing.T) {
	camera := &fakeCamera{}
	h, err := newSource(camera, &scriptedDecoder{script: [][]string{{"X"}}}, 0).Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	event, err := scan.First(context.Background(), h)
	if err != nil || event.RawPayload != "X" {
		t.Fatalf("First = %+v, %v", event, err)
	}
	if event.CapturedAt.IsZero() {
		t.Fatal("CapturedAt should be set")
	}
	h.Stop()
	if camera.closed.Load() != 1 {
		t.Fatal("camera should be released")
	}
}

func TestStartFailsWhenCameraUnavailable(t *testing.T) {
	source := scan.NewSource(scan.Config{
		Open:   func() (scan.Camera, error) { return nil, errors.New("device busy") },
		Logger: utils.Discard(),
	})
	h, err := source.Start(context.Background())
	if !errors.Is(err, scan.ErrCameraUnavailable) || h != nil {
		t.Fatalf("Start = %v, %v; want ErrCameraUnavailable", h, err)
	}
}

func TestTimeoutEndsWithNoPayload(t *testing.T) {
	camera := &fakeCamera{}
	h, err := newSource(camera, &scriptedDecoder{}, 20*time.Millisecond).Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Stop()
	if _, err := scan.First(context.Background(), h); !errors.Is(err, scan.ErrNoPayload) {
		t.Fatalf("First = %v, want ErrNoPayload", err)
	}
}

func TestCameraErrorEndsScan(t *testing.T) {
	camera := &fakeCamera{err: errors.New("unplugged")}
	h, err := newSource(camera, &scriptedDecoder{}, 0).Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Stop()
	_, err = scan.First(context.Background(), h)
	if err == nil || errors.Is(err, scan.ErrStopped) {
		t.Fatalf("First = %v, want camera error", err)
	}
}

func TestFirstHonoursContext(t *testing.T) {
	h, err := newSource(&fakeCamera{}, &scriptedDecoder{}, 0).Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := scan.First(ctx, h); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("First = %v, want deadline exceeded", err)
	}
}

func TestQRDecoderReadsGeneratedCode(t *testing.T) {
	code, err := qrgen.New("a1b2c3d4e5f6", qrgen.Highest)
	if err != nil {
		t.Fatal(err)
	}
	payloads, err := scan.NewQRDecoder().Decode(code.Image(256))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(payloads) != 1 || payloads[0] != "a1b2c3d4e5f6" {
		t.Fatalf("payloads = %v", payloads)
	}
}

func TestQRDecoderBlankFrame(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	payloads, err := scan.NewQRDecoder().Decode(blank)
	if err != nil || len(payloads) != 0 {
		t.Fatalf("Decode(blank) = %v, %v", payloads, err)
	}
}
