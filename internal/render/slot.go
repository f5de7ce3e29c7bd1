package render

import (
	"context"
	"errors"
	"sync"

	"github.com/harrylevesque/qrgen/internal/models"
)

// ErrSuperseded is returned to a preview request that a newer one overtook.
var ErrSuperseded = errors.New("preview superseded by a newer request")

// Slot is a last-write-wins preview. Each Submit cancels the render in
// flight; only the newest submission publishes its image.
type Slot struct {
	r *Renderer

	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	latest    []byte
	latestSeq uint64
}

func NewSlot(r *Renderer) *Slot {
	return &Slot{r: r}
}

// Submit renders a PNG preview. It returns ErrSuperseded when another Submit
// started after this one, whatever the order in which they finish.
func (s *Slot) Submit(ctx context.Context, payload string, settings models.RenderSettings) ([]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	img, err := s.r.PNG(ctx, payload, settings)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		s.r.metrics.IncPreview("superseded")
		return nil, ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		s.r.metrics.IncPreview("failed")
		return nil, err
	}
	s.latest = img
	s.latestSeq = seq
	s.r.metrics.IncPreview("published")
	return img, nil
}

// Latest returns the most recently published preview and its sequence number.
// The sequence is zero when nothing has been published.
func (s *Slot) Latest() ([]byte, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latestSeq
}
