// Package charger is the registry of listed chargers. Listing is the only
// write it performs; status transitions belong to the matching engine.
package charger

import (
	"context"
	"errors"
	"log/slog"

	"topcharger/internal/audit"
	"topcharger/internal/authority"
	"topcharger/internal/identity"
	"topcharger/internal/recordstore"
	"topcharger/pkg/attrs"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/requestcontext"
)

// Users resolves and authorizes identities.
type Users interface {
	Authorize(ctx context.Context, caller authority.AuthorizedIdentity, hash domain.IdentityHash) (*identity.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

type Service struct {
	chargers       chargerStore
	users          Users
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(records recordstore.Store, users Users, opts ...Option) *Service {
	s := &Service{chargers: chargerStore{records: records}, users: users}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCharger creates an Available charger owned by req.Owner.
//
// Errors:
//   - CodeValidation for malformed fields, including a location over 64 bytes
//   - CodeForbidden when the owner is unregistered, is not a host, or is
//     not controlled by caller
//   - CodeConflict when (owner, charger id) is already listed
func (s *Service) ListCharger(ctx context.Context, caller authority.AuthorizedIdentity, req ListChargerRequest) (*Charger, error) {
	c, err := NewCharger(req, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	owner, err := s.users.Authorize(ctx, caller, req.Owner)
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			s.rejected(ctx, "owner_unregistered")
			return nil, dErrors.New(dErrors.CodeForbidden, "owner is not a registered host")
		case dErrors.HasCode(err, dErrors.CodeForbidden):
			s.rejected(ctx, "not_controller")
			return nil, dErrors.New(dErrors.CodeForbidden, "caller does not control the owner")
		default:
			return nil, err
		}
	}
	if !owner.IsHost() {
		s.rejected(ctx, "not_host")
		return nil, dErrors.New(dErrors.CodeForbidden, "owner is not a registered host")
	}

	if err := s.chargers.create(ctx, c); err != nil {
		if errors.Is(err, recordstore.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "charger already listed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list charger")
	}

	s.logAudit(ctx, audit.ActionChargerListed,
		"subject", req.Owner.String(),
		"actor", caller.Authority.String(),
		"resource", c.Key.Address().String(),
		"charger_id", c.Key.ID,
	)
	if s.metrics != nil {
		s.metrics.ChargersListed.WithLabelValues(c.Supply.String()).Inc()
	}
	return c, nil
}

// Get loads one charger.
func (s *Service) Get(ctx context.Context, key Key) (*Charger, error) {
	c, err := s.chargers.find(ctx, key)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "charger not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load charger")
	}
	return c, nil
}

// Search returns chargers matching filter, newest first.
func (s *Service) Search(ctx context.Context, filter Filter, page Page) (SearchResult, error) {
	all, err := s.chargers.list(ctx)
	if err != nil {
		return SearchResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search chargers")
	}
	return paginate(all, filter, page), nil
}

func (s *Service) rejected(ctx context.Context, reason string) {
	if s.metrics != nil {
		s.metrics.ListRejected.WithLabelValues(reason).Inc()
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "charger listing rejected",
			"reason", reason,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   action,
		Subject:  attrs.ExtractString(attributes, "subject"),
		Actor:    attrs.ExtractString(attributes, "actor"),
		Resource: attrs.ExtractString(attributes, "resource"),
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "event", string(action))
	}
}
