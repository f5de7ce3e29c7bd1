package scan

import (
	"image"
	"testing"

	qrgen "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesRoundTrip(t *testing.T) {
	cases := []string{
		"https://example.com",
		"WIFI:T:WPA;S:Home;P:secret1;H:false;;",
		"BEGIN:VCARD\nVERSION:3.0\nFN:Ada Lovelace\nEND:VCARD",
		"geo:37.7749,-122.4194",
	}
	for _, text := range cases {
		data, err := qrgen.Encode(text, qrgen.Medium, 256)
		require.NoError(t, err)

		got, err := Bytes(data)
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestImage(t *testing.T) {
	qr, err := qrgen.New("tel:+1-555-0100", qrgen.Medium)
	require.NoError(t, err)

	got, err := Image(qr.Image(200))
	require.NoError(t, err)
	assert.Equal(t, "tel:+1-555-0100", got)
}

func TestErrors(t *testing.T) {
	_, err := Bytes(nil)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = Image(nil)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = Bytes([]byte("not an image"))
	assert.ErrorIs(t, err, ErrDecode)

	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	_, err = Image(blank)
	assert.ErrorIs(t, err, ErrDecode)
}
