//go:build linux

package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/blackjack/webcam"
)

const (
	formatMJPEG webcam.PixelFormat = 0x47504A4D // MJPG
	formatYUYV  webcam.PixelFormat = 0x56595559 // YUYV

	frameWaitTimeout = 1 // seconds
)

// Webcam is a V4L2 camera streaming MJPEG or YUYV frames.
type Webcam struct {
	cam    *webcam.Webcam
	format webcam.PixelFormat
	width  int
	height int
}

// WebcamOpener returns an Opener for the V4L2 device at path.
func WebcamOpener(path string, width, height int) Opener {
	return func() (Camera, error) { return OpenWebcam(path, width, height) }
}

func OpenWebcam(path string, width, height int) (*Webcam, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	supported := cam.GetSupportedFormats()
	var format webcam.PixelFormat
	switch {
	case supported[formatMJPEG] != "":
		format = formatMJPEG
	case supported[formatYUYV] != "":
		format = formatYUYV
	default:
		cam.Close()
		return nil, fmt.Errorf("%s supports neither MJPEG nor YUYV", path)
	}
	format, w, h, err := cam.SetImageFormat(format, uint32(width), uint32(height))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("failed to set image format: %w", err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("failed to start streaming: %w", err)
	}
	return &Webcam{cam: cam, format: format, width: int(w), height: int(h)}, nil
}

func (c *Webcam) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err := c.cam.WaitForFrame(frameWaitTimeout)
	var timeout *webcam.Timeout
	if errors.As(err, &timeout) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	frame, err := c.cam.ReadFrame()
	if err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return nil, nil
	}
	if c.format == formatMJPEG {
		img, err := jpeg.Decode(bytes.NewReader(frame))
		if err != nil {
			// partial frames happen while the sensor settles
			return nil, nil
		}
		return img, nil
	}
	return yuyvLuma(frame, c.width, c.height), nil
}

func (c *Webcam) Close() error {
	stopErr := c.cam.StopStreaming()
	return errors.Join(stopErr, c.cam.Close())
}

// yuyvLuma keeps the Y samples of a packed YUYV frame. QR decoding only
// needs luminance.
func yuyvLuma(frame []byte, width, height int) image.Image {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(frame) && j < len(img.Pix); i, j = i+2, j+1 {
		img.Pix[j] = frame[i]
	}
	return img
}
