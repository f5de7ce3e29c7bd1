// Package scan decodes QR symbols back into payload text.
package scan

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

var (
	ErrNoImage = errors.New("no image data")
	ErrDecode  = errors.New("failed to decode QR code")
)

var hints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_TRY_HARDER: true,
}

// Image returns the text carried by the QR symbol in img.
func Image(img image.Image) (string, error) {
	if img == nil {
		return "", ErrNoImage
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", errors.Join(ErrDecode, err)
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", errors.Join(ErrDecode, err)
	}
	return result.GetText(), nil
}

// Bytes decodes an encoded PNG, JPEG or GIF image and scans it.
func Bytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.Join(ErrDecode, err)
	}
	return Image(img)
}
