package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"topcharger/internal/authority"
	"topcharger/internal/charger"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/platform/httputil"
	request "topcharger/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the part of the charger registry the HTTP layer needs.
type Service interface {
	ListCharger(ctx context.Context, caller authority.AuthorizedIdentity, req charger.ListChargerRequest) (*charger.Charger, error)
	Get(ctx context.Context, key charger.Key) (*charger.Charger, error)
	Search(ctx context.Context, filter charger.Filter, page charger.Page) (charger.SearchResult, error)
}

// CreateRequest is the body of POST /v1/chargers.
type CreateRequest struct {
	Owner     domain.IdentityHash `json:"owner"`
	ChargerID uint64              `json:"charger_id"`
	PowerKW   uint16              `json:"power_kw"`
	Supply    *charger.Supply     `json:"supply"`
	Price     uint64              `json:"price"`
	Location  string              `json:"location"`
}

type Handler struct {
	chargers Service
	logger   *slog.Logger
}

func New(chargers Service, logger *slog.Logger) *Handler {
	return &Handler{chargers: chargers, logger: logger}
}

// Register mounts the charger routes. requireAuth guards writes.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.With(requireAuth).Post("/v1/chargers", h.HandleCreate)
	r.Get("/v1/chargers", h.HandleSearch)
	r.Get("/v1/chargers/{owner}/{chargerID}", h.HandleGet)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := authority.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Supply == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "supply is required"))
		return
	}

	c, err := h.chargers.ListCharger(ctx, caller, charger.ListChargerRequest{
		Owner:     req.Owner,
		ChargerID: req.ChargerID,
		PowerKW:   req.PowerKW,
		Supply:    *req.Supply,
		Price:     req.Price,
		Location:  req.Location,
	})
	if err != nil {
		h.fail(ctx, w, "list charger", err)
		return
	}
	w.Header().Set("Location", "/v1/chargers/"+c.Key.String())
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := charger.ParseKey(chi.URLParam(r, "owner"), chi.URLParam(r, "chargerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.chargers.Get(ctx, key)
	if err != nil {
		h.fail(ctx, w, "get charger", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleSearch serves GET /v1/chargers?owner=&supply=&status=&min_power_kw=&page=&page_size=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, page, err := parseSearch(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.chargers.Search(ctx, filter, page)
	if err != nil {
		h.fail(ctx, w, "search chargers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func parseSearch(q url.Values) (charger.Filter, charger.Page, error) {
	var filter charger.Filter
	if v := q.Get("owner"); v != "" {
		owner, err := domain.ParseIdentityHash(v)
		if err != nil {
			return filter, charger.Page{}, err
		}
		filter.Owner = &owner
	}
	if v := q.Get("supply"); v != "" {
		supply, err := charger.ParseSupply(v)
		if err != nil {
			return filter, charger.Page{}, err
		}
		filter.Supply = &supply
	}
	if v := q.Get("status"); v != "" {
		status, err := charger.ParseStatus(v)
		if err != nil {
			return filter, charger.Page{}, err
		}
		filter.Status = &status
	}
	if v := q.Get("min_power_kw"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return filter, charger.Page{}, dErrors.New(dErrors.CodeInvalidInput, "min_power_kw must be an integer up to 65535")
		}
		filter.MinPowerKW = uint16(n)
	}

	var page charger.Page
	for name, dst := range map[string]*int{"page": &page.Page, "page_size": &page.PageSize} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, charger.Page{}, dErrors.New(dErrors.CodeInvalidInput, name+" must be an integer")
		}
		*dst = n
	}
	return filter, page, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+op, "error", err, "request_id", request.GetRequestID(ctx))
	}
	httputil.WriteError(w, err)
}
