package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/harrylevesque/qrgen/internal/files"
	"github.com/harrylevesque/qrgen/internal/models"
	"github.com/harrylevesque/qrgen/internal/payload"
	"github.com/harrylevesque/qrgen/internal/render"
	"github.com/harrylevesque/qrgen/internal/utils"
)

type codeRequest struct {
	Name           string                 `json:"name"`
	Type           string                 `json:"type"`
	Content        models.Content         `json:"content"`
	DesignSettings *models.RenderSettings `json:"designSettings,omitempty"`
	IsDynamic      bool                   `json:"isDynamic"`
	IsActive       *bool                  `json:"isActive,omitempty"`
	PasswordHash   string                 `json:"passwordHash,omitempty"`
	ExpiresAt      *time.Time             `json:"expiresAt,omitempty"`
	MaxScans       *int                   `json:"maxScans,omitempty"`
}

func (req *codeRequest) record(userID string, loc *time.Location) (*models.Record, error) {
	kind, ok := models.ParseKind(req.Type)
	if !ok {
		kind = models.Kind(req.Type)
	}
	content, err := models.MarshalContent(req.Content.Normalize(kind, loc))
	if err != nil {
		return nil, err
	}
	settings := models.DefaultRenderSettings()
	if req.DesignSettings != nil {
		settings = *req.DesignSettings
	}
	design, err := models.MarshalSettings(settings)
	if err != nil {
		return nil, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &models.Record{
		UserID:         userID,
		Name:           strings.TrimSpace(req.Name),
		Type:           kind,
		Content:        content,
		DesignSettings: design,
		IsDynamic:      req.IsDynamic,
		IsActive:       active,
		PasswordHash:   req.PasswordHash,
		ExpiresAt:      req.ExpiresAt,
		MaxScans:       req.MaxScans,
	}, nil
}

// codeView is the client representation of a record. Stored JSON is inlined
// and the payload is re-derived; the password hash is never returned.
type codeView struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	Type           models.Kind     `json:"type"`
	Content        json.RawMessage `json:"content"`
	DesignSettings json.RawMessage `json:"designSettings"`
	Payload        string          `json:"payload"`
	IsDynamic      bool            `json:"isDynamic"`
	IsActive       bool            `json:"isActive"`
	ShortURL       string          `json:"shortUrl,omitempty"`
	ExpiresAt      *time.Time      `json:"expiresAt,omitempty"`
	MaxScans       *int            `json:"maxScans,omitempty"`
	Expired        bool            `json:"expired"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (s *Server) view(r *models.Record) codeView {
	text, err := payload.EncodeRecord(r, s.loc)
	if err != nil {
		log.Warnw("stored content unreadable", "id", r.ID, "error", err)
	}
	return codeView{
		ID:             r.ID,
		UserID:         r.UserID,
		Name:           r.Name,
		Type:           r.Type,
		Content:        rawJSON(r.Content),
		DesignSettings: rawJSON(r.DesignSettings),
		Payload:        text,
		IsDynamic:      r.IsDynamic,
		IsActive:       r.IsActive,
		ShortURL:       r.ShortURL,
		ExpiresAt:      r.ExpiresAt,
		MaxScans:       r.MaxScans,
		Expired:        r.Expired(s.now()),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func rawJSON(s string) json.RawMessage {
	if strings.TrimSpace(s) == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(s)
}

func userID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(UserHeader))
	if id == "" {
		return "", utils.New(http.StatusUnauthorized, "missing "+UserHeader)
	}
	return id, nil
}

// owned loads a record and hides records of other users behind 404.
func (s *Server) owned(r *http.Request) (*models.Record, error) {
	uid, err := userID(r)
	if err != nil {
		return nil, err
	}
	id := mux.Vars(r)["id"]
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != uid {
		return nil, utils.Wrap(http.StatusNotFound, "", files.ErrNotFound)
	}
	return rec, nil
}

func (s *Server) CreateCodeHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := req.record(uid, s.loc)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Create(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	log.Infow("code created", "id", rec.ID, "type", rec.Type)
	writeJSON(w, http.StatusCreated, s.view(rec))
}

// ListCodesHandler supports ?type=, ?q= and ?active=true.
func (s *Server) ListCodesHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	f := files.Filter{UserID: uid, Search: q.Get("q")}
	if t := q.Get("type"); t != "" && t != "all" {
		kind, ok := models.ParseKind(t)
		if !ok {
			writeError(w, badRequest("unknown type "+strconv.Quote(t)))
			return
		}
		f.Kind = kind
	}
	if a := q.Get("active"); a != "" {
		active, err := strconv.ParseBool(a)
		if err != nil {
			writeError(w, badRequest("active must be a boolean"))
			return
		}
		f.ActiveOnly = active
	}
	recs, err := s.store.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]codeView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, s.view(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) GetCodeHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.owned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec))
}

func (s *Server) UpdateCodeHandler(w http.ResponseWriter, r *http.Request) {
	existing, err := s.owned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.IsActive == nil {
		req.IsActive = &existing.IsActive
	}
	rec, err := req.record(existing.UserID, s.loc)
	if err != nil {
		writeError(w, err)
		return
	}
	rec.ID = existing.ID
	if err := s.store.Update(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec))
}

func (s *Server) DeleteCodeHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.owned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Delete(r.Context(), rec.ID); err != nil {
		writeError(w, err)
		return
	}
	log.Infow("code deleted", "id", rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ToggleCodeHandler flips isActive.
func (s *Server) ToggleCodeHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.owned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.store.SetActive(r.Context(), rec.ID, !rec.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(updated))
}

// CodeImageHandler renders a saved code with its stored design.
func (s *Server) CodeImageHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.owned(r)
	if err != nil {
		writeError(w, err)
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	text, err := payload.EncodeRecord(rec, s.loc)
	if err != nil {
		writeError(w, err)
		return
	}
	settings, err := rec.Settings()
	if err != nil {
		writeError(w, err)
		return
	}
	img, err := s.renderCached(r.Context(), format, text, settings)
	if err != nil {
		writeError(w, err)
		return
	}
	name := r.URL.Query().Get("filename")
	if name == "" {
		name = rec.Name
	}
	writeImage(w, format, render.Filename(name, format), img)
}

type exportDocument struct {
	ExportedAt time.Time  `json:"exportedAt"`
	UserID     string     `json:"userId"`
	Codes      []codeView `json:"codes"`
}

// ExportHandler returns every record of the caller, newest first, as a download.
func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := s.store.List(r.Context(), files.Filter{UserID: uid})
	if err != nil {
		writeError(w, err)
		return
	}
	doc := exportDocument{ExportedAt: s.now().UTC(), UserID: uid, Codes: make([]codeView, 0, len(recs))}
	for _, rec := range recs {
		doc.Codes = append(doc.Codes, s.view(rec))
	}
	w.Header().Set("Content-Disposition", `attachment; filename="qr-codes-export.json"`)
	writeJSON(w, http.StatusOK, doc)
}
