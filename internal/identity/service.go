// Package identity registers marketplace participants and answers whether
// a caller controls a given identity.
package identity

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AuditPublisher

import (
	"context"
	"errors"
	"log/slog"

	"topcharger/internal/audit"
	"topcharger/internal/authority"
	"topcharger/internal/recordstore"
	"topcharger/pkg/attrs"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service is the identity registry.
type Service struct {
	users          userStore
	delegations    authority.Delegations
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

func WithDelegations(d authority.Delegations) Option {
	return func(s *Service) {
		s.delegations = d
	}
}

func New(records recordstore.Store, opts ...Option) *Service {
	s := &Service{users: userStore{records: records}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the user record for hash, controlled by the caller's
// authority. A hash registers at most once.
func (s *Service) Register(ctx context.Context, caller authority.AuthorizedIdentity, hash domain.IdentityHash, role Role) (*User, error) {
	user, err := NewUser(hash, role, caller.Authority, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.users.create(ctx, user); err != nil {
		if errors.Is(err, recordstore.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "identity already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register user")
	}

	s.logAudit(ctx, audit.ActionUserRegistered,
		"subject", hash.String(),
		"actor", caller.Authority.String(),
		"role", role.String(),
	)
	if s.metrics != nil {
		s.metrics.UsersRegistered.WithLabelValues(role.String()).Inc()
	}
	return user, nil
}

// Get loads a registered user.
func (s *Service) Get(ctx context.Context, hash domain.IdentityHash) (*User, error) {
	user, err := s.users.find(ctx, hash)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// Authorize loads the user for hash and checks that caller controls it,
// directly or through a delegation.
//
// Errors: CodeNotFound for an unregistered hash, CodeForbidden when the
// caller does not control it.
func (s *Service) Authorize(ctx context.Context, caller authority.AuthorizedIdentity, hash domain.IdentityHash) (*User, error) {
	user, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !authority.Controls(ctx, s.delegations, caller, user.Authority) {
		s.denied(ctx, caller, hash)
		return nil, dErrors.New(dErrors.CodeForbidden, "caller does not control this identity")
	}
	return user, nil
}

// List returns every registered user.
func (s *Service) List(ctx context.Context) ([]*User, error) {
	users, err := s.users.list(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

func (s *Service) denied(ctx context.Context, caller authority.AuthorizedIdentity, hash domain.IdentityHash) {
	if s.metrics != nil {
		s.metrics.AccessDenied.Inc()
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "access denied",
			"subject", hash.String(),
			"actor", caller.Authority.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionAccessDenied,
		Subject:  hash.String(),
		Actor:    caller.Authority.String(),
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "event", string(audit.ActionAccessDenied))
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
		Action:  action,
		Subject: attrs.ExtractString(attributes, "subject"),
		Actor:   attrs.ExtractString(attributes, "actor"),
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "event", string(action))
	}
}
