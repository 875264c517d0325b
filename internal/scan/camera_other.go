//go:build !linux

package scan

import (
	"context"
	"errors"
	"image"
)

var errNoWebcam = errors.New("webcam capture is only supported on linux")

type Webcam struct{}

func WebcamOpener(path string, width, height int) Opener {
	return func() (Camera, error) { return OpenWebcam(path, width, height) }
}

func OpenWebcam(string, int, int) (*Webcam, error) { return nil, errNoWebcam }

func (*Webcam) Frame(context.Context) (image.Image, error) { return nil, errNoWebcam }

func (*Webcam) Close() error { return nil }
