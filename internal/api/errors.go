package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harrylevesque/qrgen/internal/files"
	"github.com/harrylevesque/qrgen/internal/models"
	"github.com/harrylevesque/qrgen/internal/payload"
	"github.com/harrylevesque/qrgen/internal/render"
	"github.com/harrylevesque/qrgen/internal/scan"
	"github.com/harrylevesque/qrgen/internal/utils"
)

// classify attaches an HTTP status to domain errors.
func classify(err error) error {
	var apiErr *utils.APIError
	switch {
	case errors.As(err, &apiErr):
		return err
	case errors.Is(err, files.ErrNotFound):
		return utils.Wrap(http.StatusNotFound, "", err)
	case errors.Is(err, files.ErrExists), errors.Is(err, render.ErrSuperseded):
		return utils.Wrap(http.StatusConflict, "", err)
	case errors.Is(err, models.ErrInvalidRecord):
		return utils.Wrap(http.StatusBadRequest, "", err)
	case errors.Is(err, render.ErrEmptyPayload),
		errors.Is(err, render.ErrPayloadTooLarge),
		errors.Is(err, render.ErrInvalidSize),
		errors.Is(err, render.ErrInvalidColor),
		errors.Is(err, scan.ErrNoImage),
		errors.Is(err, scan.ErrDecode),
		errors.Is(err, payload.ErrMalformed):
		return utils.Wrap(http.StatusUnprocessableEntity, "", err)
	case errors.Is(err, context.Canceled):
		return utils.Wrap(499, "request canceled", nil)
	default:
		return err
	}
}

func writeError(w http.ResponseWriter, err error) {
	err = classify(err)
	status := utils.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("internal error: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": utils.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("write response: %v", err)
	}
}

func badRequest(msg string) error {
	return utils.New(http.StatusBadRequest, msg)
}
