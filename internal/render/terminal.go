package render

import (
	"errors"
	"io"

	"github.com/mdp/qrterminal/v3"
	qrcode "github.com/skip2/go-qrcode"
)

// Terminal writes payload to w as half-block characters.
func Terminal(w io.Writer, payload string) error {
	if payload == "" {
		return ErrEmptyPayload
	}
	if _, err := qrcode.New(payload, qrcode.Medium); err != nil {
		return errors.Join(ErrPayloadTooLarge, err)
	}
	qrterminal.GenerateHalfBlock(payload, qrterminal.M, w)
	return nil
}
