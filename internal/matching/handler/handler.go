package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"topcharger/internal/authority"
	"topcharger/internal/charger"
	"topcharger/internal/matching"
	"topcharger/internal/recordstore"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/platform/httputil"
	request "topcharger/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the part of the matching engine the HTTP layer needs.
type Service interface {
	Reserve(ctx context.Context, caller authority.AuthorizedIdentity, chargerKey charger.Key, driver domain.IdentityHash) (recordstore.Address, error)
	Confirm(ctx context.Context, caller authority.AuthorizedIdentity, matchKey recordstore.Address, wasCorrect bool) error
	Release(ctx context.Context, caller authority.AuthorizedIdentity, chargerKey charger.Key) error
	Get(ctx context.Context, matchKey recordstore.Address) (*matching.Match, error)
	ForCharger(ctx context.Context, chargerKey charger.Key) (*matching.Match, error)
}

// ReserveRequest is the body of POST /v1/chargers/{owner}/{chargerID}/reserve.
type ReserveRequest struct {
	Driver domain.IdentityHash `json:"driver"`
}

// ReserveResponse carries the key to confirm against.
type ReserveResponse struct {
	MatchKey recordstore.Address `json:"match_key"`
}

// ConfirmRequest is the body of POST /v1/matches/{matchKey}/confirm.
type ConfirmRequest struct {
	WasCorrect *bool `json:"was_correct"`
}

type Handler struct {
	matches Service
	logger  *slog.Logger
}

func New(matches Service, logger *slog.Logger) *Handler {
	return &Handler{matches: matches, logger: logger}
}

// Register mounts the reservation routes. requireAuth guards writes.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/v1/chargers/{owner}/{chargerID}/reserve", h.HandleReserve)
		r.Post("/v1/chargers/{owner}/{chargerID}/release", h.HandleRelease)
		r.Post("/v1/matches/{matchKey}/confirm", h.HandleConfirm)
	})
	r.Get("/v1/chargers/{owner}/{chargerID}/match", h.HandleForCharger)
	r.Get("/v1/matches/{matchKey}", h.HandleGet)
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := authority.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	key, err := chargerKey(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req ReserveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	matchKey, err := h.matches.Reserve(ctx, caller, key, req.Driver)
	if err != nil {
		h.fail(ctx, w, "reserve charger", err)
		return
	}
	w.Header().Set("Location", "/v1/matches/"+matchKey.String())
	httputil.WriteJSON(w, http.StatusCreated, ReserveResponse{MatchKey: matchKey})
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := authority.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	matchKey, err := recordstore.ParseAddress(chi.URLParam(r, "matchKey"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "match key must be 64 hex characters"))
		return
	}
	var req ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.WasCorrect == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "was_correct is required"))
		return
	}

	if err := h.matches.Confirm(ctx, caller, matchKey, *req.WasCorrect); err != nil {
		h.fail(ctx, w, "confirm charge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := authority.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	key, err := chargerKey(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.matches.Release(ctx, caller, key); err != nil {
		h.fail(ctx, w, "release charger", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matchKey, err := recordstore.ParseAddress(chi.URLParam(r, "matchKey"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "match key must be 64 hex characters"))
		return
	}
	m, err := h.matches.Get(ctx, matchKey)
	if err != nil {
		h.fail(ctx, w, "get match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) HandleForCharger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := chargerKey(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.matches.ForCharger(ctx, key)
	if err != nil {
		h.fail(ctx, w, "get charger match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func chargerKey(r *http.Request) (charger.Key, error) {
	return charger.ParseKey(chi.URLParam(r, "owner"), chi.URLParam(r, "chargerID"))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+op, "error", err, "request_id", request.GetRequestID(ctx))
	}
	httputil.WriteError(w, err)
}
