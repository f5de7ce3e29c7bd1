package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harrylevesque/qrgen/internal/models"
	"github.com/harrylevesque/qrgen/internal/payload"
	"github.com/harrylevesque/qrgen/internal/render"
	"github.com/harrylevesque/qrgen/internal/scan"
)

const (
	maxJSONBody  = 1 << 20
	maxImageBody = 10 << 20
)

// GetTimeHandler returns the current server time in RFC3339 format
func GetTimeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"time": time.Now().Format(time.RFC3339)})
}

// intentRequest describes something to encode: either a type and content
// bag, or a ready payload.
type intentRequest struct {
	Type           string                 `json:"type"`
	Content        models.Content         `json:"content"`
	DesignSettings *models.RenderSettings `json:"designSettings,omitempty"`
	Payload        string                 `json:"payload,omitempty"`
	Filename       string                 `json:"filename,omitempty"`
}

func (req *intentRequest) payload(s *Server) (models.Kind, string, error) {
	if req.Payload != "" {
		return "", req.Payload, nil
	}
	kind, ok := models.ParseKind(req.Type)
	if !ok {
		return "", "", badRequest(fmt.Sprintf("unknown type %q", req.Type))
	}
	s.metrics.IncPayload(string(kind))
	return kind, payload.EncodeContent(kind, req.Content, s.loc), nil
}

func (req *intentRequest) settings() models.RenderSettings {
	if req.DesignSettings == nil {
		return models.DefaultRenderSettings()
	}
	return *req.DesignSettings
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// PayloadHandler returns the text a code for the given intent carries.
func (s *Server) PayloadHandler(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	kind, text, err := req.payload(s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"type": string(kind), "payload": text})
}

// RenderHandler returns the rendered image as a download.
func (s *Server) RenderHandler(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	var req intentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	_, text, err := req.payload(s)
	if err != nil {
		writeError(w, err)
		return
	}
	img, err := s.renderCached(r.Context(), format, text, req.settings())
	if err != nil {
		writeError(w, err)
		return
	}
	writeImage(w, format, render.Filename(req.Filename, format), img)
}

// PreviewHandler renders into the caller's preview slot. Requests overtaken
// by a newer one for the same session get 409.
func (s *Server) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		writeError(w, badRequest("missing session"))
		return
	}
	var req intentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	_, text, err := req.payload(s)
	if err != nil {
		writeError(w, err)
		return
	}
	fresh := render.NewSlot(s.renderer)
	slot, ok, _ := s.slots.PeekOrAdd(session, fresh)
	if !ok {
		slot = fresh
	}
	img, err := slot.Submit(r.Context(), text, req.settings())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", render.FormatPNG.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

type scanResponse struct {
	Payload string          `json:"payload"`
	Type    models.Kind     `json:"type,omitempty"`
	Content *models.Content `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ScanHandler decodes an uploaded image and classifies its payload.
func (s *Server) ScanHandler(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImageBody))
	if err != nil {
		writeError(w, badRequest("read body: "+err.Error()))
		return
	}
	text, err := scan.Bytes(data)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := scanResponse{Payload: text}
	in, err := payload.Parse(text)
	if err != nil {
		resp.Error = err.Error()
	} else {
		c := models.ContentOf(in)
		resp.Type = in.Kind()
		resp.Content = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) renderCached(ctx context.Context, format render.Format, text string, settings models.RenderSettings) ([]byte, error) {
	key := cacheKey(format, text, settings)
	if img, ok := s.images.Get(key); ok {
		return img, nil
	}
	var (
		img []byte
		err error
	)
	switch format {
	case render.FormatSVG:
		img, err = s.renderer.SVG(text, settings)
	default:
		img, err = s.renderer.PNG(ctx, text, settings)
	}
	if err != nil {
		return nil, err
	}
	// a PNG logo may have been dropped on a transient fetch failure
	if format == render.FormatSVG || settings.LogoURL == "" {
		s.images.Add(key, img)
	}
	return img, nil
}

func cacheKey(format render.Format, text string, settings models.RenderSettings) string {
	h := sha256.New()
	enc, _ := json.Marshal(settings)
	fmt.Fprintf(h, "%s\x00%s\x00", format, text)
	h.Write(enc)
	return hex.EncodeToString(h.Sum(nil))
}

func writeImage(w http.ResponseWriter, format render.Format, filename string, img []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
