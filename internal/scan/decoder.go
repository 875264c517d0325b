package scan

import (
	"errors"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDecoder reads QR codes with gozxing.
type QRDecoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		reader: qrcode.NewQRCodeReader(),
		hints:  map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true},
	}
}

func (d *QRDecoder) Decode(img image.Image) ([]string, error) {
	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, err
	}
	result, err := d.reader.Decode(bitmap, d.hints)
	if err != nil {
		var notFound gozxing.NotFoundException
		var checksum gozxing.ChecksumException
		var format gozxing.FormatException
		if errors.As(err, &notFound) || errors.As(err, &checksum) || errors.As(err, &format) {
			return nil, nil
		}
		return nil, err
	}
	return []string{result.GetText()}, nil
}
