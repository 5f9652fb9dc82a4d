// Package handlers contains the HTTP handlers for the requirements API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apierror "github.com/NickMagic25/kubeegg/internal/api/error"
	"github.com/NickMagic25/kubeegg/internal/egg"
	"github.com/NickMagic25/kubeegg/internal/env"
	"github.com/NickMagic25/kubeegg/internal/fetch"
)

// RequirementsRequest names the egg to inspect. Source may be a URL or a
// path readable by the server.
type RequirementsRequest struct {
	Source string `json:"source"`
}

// RequirementsResponse echoes the parsed egg so callers can see every
// value the generator would prompt for.
type RequirementsResponse struct {
	Source string   `json:"source"`
	Egg    *egg.Egg `json:"egg"`
}

// Requirements fetches an egg, parses it and returns the normalized view.
// The endpoint is stateless: nothing is written anywhere.
func Requirements(w http.ResponseWriter, r *http.Request) {
	e := env.FromContext(r.Context())
	log := e.Logger
	ctx := r.Context()

	var req RequirementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorID := uuid.NewString()
		log.LogAttrs(ctx, slog.LevelError,
			"Failed to decode request body",
			slog.Any("error", err),
			slog.String("error_id", errorID),
		)
		_ = apierror.EncodeError(w, apierror.BadRequest, "Invalid JSON body", errorID)
		return
	}

	if req.Source == "" {
		errorID := uuid.NewString()
		log.LogAttrs(ctx, slog.LevelError,
			"Missing source in request",
			slog.String("error_id", errorID),
		)
		_ = apierror.EncodeError(w, apierror.UnprocessibleEntity, "source is required", errorID)
		return
	}

	log.DebugContext(ctx, "Fetching egg", slog.String("source", req.Source))
	doc, err := e.Fetch(ctx, req.Source)
	if err != nil {
		errorID := uuid.NewString()
		log.LogAttrs(ctx, slog.LevelError,
			"Failed to fetch egg",
			slog.Any("error", err),
			slog.String("error_id", errorID),
		)
		var fetchErr *fetch.Error
		if errors.As(err, &fetchErr) {
			_ = apierror.EncodeError(w, apierror.BadGateway, "Failed to retrieve egg from source", errorID)
			return
		}
		_ = apierror.EncodeInternalError(w, errorID)
		return
	}

	log.DebugContext(ctx, "Parsing egg")
	parsed, err := egg.Parse(doc)
	if err != nil {
		errorID := uuid.NewString()
		log.LogAttrs(ctx, slog.LevelError,
			"Failed to parse egg",
			slog.Any("error", err),
			slog.String("error_id", errorID),
		)
		var parseErr *egg.ParseError
		if errors.As(err, &parseErr) {
			_ = apierror.EncodeError(w, apierror.BadRequest, parseErr.Error(), errorID)
			return
		}
		_ = apierror.EncodeInternalError(w, errorID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(RequirementsResponse{
		Source: req.Source,
		Egg:    parsed,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to encode response", slog.Any("error", err))
	}
}
