// Package render turns payload text into QR images. The symbol itself is
// produced by go-qrcode at the Medium recovery level; this package adds
// colours, sizing, an optional centred logo and SVG output.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"

	logging "github.com/ipfs/go-log/v2"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/harrylevesque/qrgen/internal/metrics"
	"github.com/harrylevesque/qrgen/internal/models"
)

var log = logging.Logger("qrgen/render")

var (
	ErrEmptyPayload    = errors.New("payload is empty")
	ErrPayloadTooLarge = errors.New("payload exceeds QR capacity")
	ErrInvalidSize     = errors.New("invalid QR code size")
	ErrInvalidColor    = errors.New("invalid color")
)

const (
	DefaultMaxSize = 4096
	// LogoRatio is the default logo edge relative to the image edge.
	LogoRatio = 0.2
	// maxLogoRatio keeps enough modules visible for Medium recovery.
	maxLogoRatio = 0.3
	// platePadding is the background border drawn around a logo.
	platePadding = 5
)

// Options configures a Renderer. Zero values select defaults.
type Options struct {
	DefaultSize int
	MaxSize     int
	Logos       LogoLoader
	Metrics     *metrics.Metrics
}

// Renderer is safe for concurrent use.
type Renderer struct {
	defaultSize int
	maxSize     int
	logos       LogoLoader
	metrics     *metrics.Metrics
}

func New(opts Options) *Renderer {
	r := &Renderer{
		defaultSize: opts.DefaultSize,
		maxSize:     opts.MaxSize,
		logos:       opts.Logos,
		metrics:     opts.Metrics,
	}
	if r.maxSize <= 0 {
		r.maxSize = DefaultMaxSize
	}
	if r.defaultSize <= 0 {
		r.defaultSize = models.DefaultSize
	}
	if r.defaultSize > r.maxSize {
		r.defaultSize = r.maxSize
	}
	return r
}

// symbol is a validated render request.
type symbol struct {
	qr   *qrcode.QRCode
	size int
	fg   color.NRGBA
	bg   color.NRGBA
}

// logoEdge sizes the logo from the requested image size, which go-qrcode may
// exceed when the size is below one pixel per module. SVG uses the same edge.
func (s *symbol) logoEdge(requested int) int {
	return logoEdge(requested, s.size)
}

func (r *Renderer) prepare(payload string, s models.RenderSettings) (*symbol, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	s = s.WithDefaults(r.defaultSize)
	if s.Size > r.maxSize {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidSize, s.Size, r.maxSize)
	}
	fg, err := ParseColor(s.ForegroundColor)
	if err != nil {
		return nil, err
	}
	bg, err := ParseColor(s.BackgroundColor)
	if err != nil {
		return nil, err
	}
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, errors.Join(ErrPayloadTooLarge, err)
	}
	qr.ForegroundColor = fg
	qr.BackgroundColor = bg
	return &symbol{qr: qr, size: s.Size, fg: fg, bg: bg}, nil
}

// Image draws payload with settings. A logo that fails to load is logged and
// skipped; the result is then the plain symbol.
func (r *Renderer) Image(ctx context.Context, payload string, s models.RenderSettings) (image.Image, error) {
	start := time.Now()
	img, err := r.image(ctx, payload, s)
	r.observe("image", start, err)
	return img, err
}

func (r *Renderer) image(ctx context.Context, payload string, s models.RenderSettings) (image.Image, error) {
	sym, err := r.prepare(payload, s)
	if err != nil {
		return nil, err
	}
	base := sym.qr.Image(sym.size)
	if s.LogoURL == "" || r.logos == nil {
		return base, nil
	}

	logo, err := r.logos.Load(ctx, s.LogoURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warnw("logo unavailable, rendering without it", "logo", s.LogoURL, "error", err)
		r.metrics.IncLogoFallback()
		return base, nil
	}
	return overlayLogo(base, logo, sym.logoEdge(s.LogoSize), sym.bg), nil
}

// PNG renders payload and encodes the result as PNG.
func (r *Renderer) PNG(ctx context.Context, payload string, s models.RenderSettings) ([]byte, error) {
	start := time.Now()
	img, err := r.image(ctx, payload, s)
	if err != nil {
		r.observe("png", start, err)
		return nil, err
	}
	var buf bytes.Buffer
	err = png.Encode(&buf, img)
	r.observe("png", start, err)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) observe(format string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		r.metrics.IncRenderFailure(Reason(err))
	}
	r.metrics.ObserveRender(format, status, time.Since(start))
}

// Reason is a short label for err, used in metrics and logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyPayload):
		return "empty_payload"
	case errors.Is(err, ErrPayloadTooLarge):
		return "too_large"
	case errors.Is(err, ErrInvalidSize):
		return "invalid_size"
	case errors.Is(err, ErrInvalidColor):
		return "invalid_color"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

func logoEdge(requested, size int) int {
	edge := requested
	if edge <= 0 {
		edge = int(float64(size) * LogoRatio)
	}
	if limit := int(float64(size) * maxLogoRatio); edge > limit {
		edge = limit
	}
	if edge < 1 {
		edge = 1
	}
	return edge
}

// overlayLogo draws a background plate centred on base and the logo, scaled
// to edge x edge, on top of it.
func overlayLogo(base, logo image.Image, edge int, plate color.Color) image.Image {
	b := base.Bounds()
	out := image.NewNRGBA(b)
	draw.Draw(out, b, base, b.Min, draw.Src)

	x := b.Min.X + (b.Dx()-edge)/2
	y := b.Min.Y + (b.Dy()-edge)/2
	plateRect := image.Rect(x-platePadding, y-platePadding, x+edge+platePadding, y+edge+platePadding).Intersect(b)
	draw.Draw(out, plateRect, image.NewUniform(plate), image.Point{}, draw.Src)

	scaled := scale(logo, edge, edge)
	draw.Draw(out, image.Rect(x, y, x+edge, y+edge), scaled, image.Point{}, draw.Over)
	return out
}

// scale resizes src to w x h with nearest-neighbour sampling.
func scale(src image.Image, w, h int) image.Image {
	sb := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if sb.Empty() {
		return dst
	}
	for dy := 0; dy < h; dy++ {
		sy := sb.Min.Y + dy*sb.Dy()/h
		for dx := 0; dx < w; dx++ {
			sx := sb.Min.X + dx*sb.Dx()/w
			dst.Set(dx, dy, src.At(sx, sy))
		}
	}
	return dst
}
