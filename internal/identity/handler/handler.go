package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"topcharger/internal/authority"
	"topcharger/internal/identity"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/platform/httputil"
	request "topcharger/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the part of the identity registry the HTTP layer needs.
type Service interface {
	Register(ctx context.Context, caller authority.AuthorizedIdentity, hash domain.IdentityHash, role identity.Role) (*identity.User, error)
	Get(ctx context.Context, hash domain.IdentityHash) (*identity.User, error)
}

// RegisterRequest is the body of POST /v1/users. The caller's verified
// authority becomes the user's controller.
type RegisterRequest struct {
	IdentityHash domain.IdentityHash `json:"identity_hash"`
	Role         identity.Role       `json:"role"`
}

type Handler struct {
	users  Service
	logger *slog.Logger
}

func New(users Service, logger *slog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// Register mounts the user routes. requireAuth guards writes.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.With(requireAuth).Post("/v1/users", h.HandleRegister)
	r.Get("/v1/users/{hash}", h.HandleGet)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := authority.FromContext(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "authority missing from context despite auth middleware",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.users.Register(ctx, caller, req.IdentityHash, req.Role)
	if err != nil {
		h.fail(ctx, w, "register user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hash, err := domain.ParseIdentityHash(chi.URLParam(r, "hash"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.users.Get(ctx, hash)
	if err != nil {
		h.fail(ctx, w, "get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+op, "error", err, "request_id", request.GetRequestID(ctx))
	}
	httputil.WriteError(w, err)
}
