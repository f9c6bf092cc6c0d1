// Package matching runs the reservation state machine.
//
//	Charger: Available --Reserve--> Allocated --Confirm--> Available
//	Match:   Pending --Confirm--> Completed
//
// Every transition is one multi-record Commit against the versions read,
// so a charger and its match never disagree in storage. A lost race is
// retried once with a fresh read.
package matching

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Users,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"topcharger/internal/audit"
	"topcharger/internal/authority"
	"topcharger/internal/charger"
	"topcharger/internal/identity"
	"topcharger/internal/recordstore"
	"topcharger/pkg/attrs"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/requestcontext"
)

// maxAttempts bounds every operation to the first try plus one retry.
const maxAttempts = 2

// Users authorizes a caller against an identity.
type Users interface {
	Authorize(ctx context.Context, caller authority.AuthorizedIdentity, hash domain.IdentityHash) (*identity.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

type Service struct {
	records        recordstore.Store
	users          Users
	autoRelease    bool
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *Metrics
	tracer         trace.Tracer
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

// WithAutoRelease controls whether Confirm returns the charger to
// Available. Enabled by default.
func WithAutoRelease(enabled bool) Option {
	return func(s *Service) {
		s.autoRelease = enabled
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(records recordstore.Store, users Users, opts ...Option) *Service {
	s := &Service{
		records:     records,
		users:       users,
		autoRelease: true,
		tracer:      otel.Tracer("topcharger/internal/matching"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve allocates an Available charger to driver and creates its Pending
// match in one commit. driver must be a registered driver that caller
// controls, so every Pending match has someone able to confirm it.
//
// Errors:
//   - CodeValidation when driver is zero
//   - CodeForbidden when driver is not a registered driver or caller does
//     not control it
//   - CodeNotFound when the charger does not exist
//   - CodeChargerNotAvailable when it is Allocated, or when a second
//     concurrent writer beat this call after the retry
func (s *Service) Reserve(ctx context.Context, caller authority.AuthorizedIdentity, chargerKey charger.Key, driver domain.IdentityHash) (recordstore.Address, error) {
	ctx, span := s.tracer.Start(ctx, "matching.Reserve", trace.WithAttributes(
		attribute.String("charger.key", chargerKey.String()),
	))
	defer span.End()
	start := time.Now()

	if driver.IsNil() {
		return recordstore.Address{}, s.finishReserve(span, start, "invalid", dErrors.New(dErrors.CodeValidation, "driver is required"))
	}
	if err := s.authorizeDriver(ctx, caller, driver); err != nil {
		return recordstore.Address{}, s.finishReserve(span, start, outcomeOf(err), err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		match, err := s.tryReserve(ctx, chargerKey, driver)
		if errors.Is(err, recordstore.ErrConcurrentModification) {
			s.conflict(ctx, "reserve", attempt)
			continue
		}
		if err != nil {
			return recordstore.Address{}, s.finishReserve(span, start, outcomeOf(err), err)
		}

		s.logAudit(ctx, audit.ActionChargerReserved,
			"subject", driver.String(),
			"actor", caller.Authority.String(),
			"resource", match.Key.String(),
			"charger", chargerKey.String(),
			"round", match.Round,
		)
		span.SetAttributes(attribute.String("match.key", match.Key.String()))
		_ = s.finishReserve(span, start, "reserved", nil)
		return match.Key, nil
	}

	return recordstore.Address{}, s.finishReserve(span, start, "contended",
		dErrors.New(dErrors.CodeChargerNotAvailable, "charger is not available"))
}

func (s *Service) authorizeDriver(ctx context.Context, caller authority.AuthorizedIdentity, driver domain.IdentityHash) error {
	user, err := s.users.Authorize(ctx, caller, driver)
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return dErrors.New(dErrors.CodeForbidden, "driver is not registered")
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		return dErrors.New(dErrors.CodeForbidden, "caller does not control the driver")
	case err != nil:
		return err
	}
	if user.Role != identity.RoleDriver {
		return dErrors.New(dErrors.CodeForbidden, "only drivers can reserve chargers")
	}
	return nil
}

func (s *Service) tryReserve(ctx context.Context, chargerKey charger.Key, driver domain.IdentityHash) (*Match, error) {
	now := requestcontext.Now(ctx)

	chargerRec, c, err := charger.Load(ctx, s.records, chargerKey)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown charger")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load charger")
	}
	if !c.CanAllocate() {
		return nil, dErrors.New(dErrors.CodeChargerNotAvailable, "charger is not available")
	}

	matchKey := KeyFor(chargerKey)
	matchRec, err := recordstore.Lookup(ctx, s.records, recordstore.NamespaceMatch, matchKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match slot")
	}
	round := uint64(1)
	if matchRec.Exists() {
		previous, err := decodeMatch(matchRec.Value)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode match")
		}
		if previous.IsLive() {
			// Available charger with a pending match: never overwrite it.
			return nil, dErrors.New(dErrors.CodeChargerNotAvailable, "charger has a pending match")
		}
		round = previous.Round + 1
	}

	if err := c.Allocate(now); err != nil {
		return nil, dErrors.New(dErrors.CodeChargerNotAvailable, "charger is not available")
	}
	match := newMatch(chargerKey, driver, round, now)

	chargerValue, err := charger.Encode(c)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode charger")
	}
	matchValue, err := encodeMatch(match)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode match")
	}

	if err := s.records.Commit(ctx, chargerRec.Next(chargerValue), matchRec.Next(matchValue)); err != nil {
		if errors.Is(err, recordstore.ErrConcurrentModification) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit reservation")
	}
	return match, nil
}

// Confirm completes a Pending match with the driver's verdict and, when
// auto-release is on, returns the charger to Available in the same commit.
//
// Errors, checked in this order:
//   - CodeNotFound when no match exists at matchKey
//   - CodeAlreadyConfirmed when the match is already Completed
//   - CodeForbidden when caller does not control the match's driver
//   - CodeConflict when concurrent writers beat both attempts
func (s *Service) Confirm(ctx context.Context, caller authority.AuthorizedIdentity, matchKey recordstore.Address, wasCorrect bool) error {
	ctx, span := s.tracer.Start(ctx, "matching.Confirm", trace.WithAttributes(
		attribute.String("match.key", matchKey.String()),
		attribute.Bool("match.was_correct", wasCorrect),
	))
	defer span.End()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		match, err := s.tryConfirm(ctx, caller, matchKey, wasCorrect)
		if errors.Is(err, recordstore.ErrConcurrentModification) {
			s.conflict(ctx, "confirm", attempt)
			continue
		}
		if err != nil {
			return s.finishConfirm(span, outcomeOf(err), err)
		}

		s.logAudit(ctx, audit.ActionChargeConfirmed,
			"subject", match.Driver.String(),
			"actor", caller.Authority.String(),
			"resource", match.Key.String(),
			"decision", fmt.Sprintf("confirmed_correct=%t", wasCorrect),
		)
		return s.finishConfirm(span, "confirmed", nil)
	}

	return s.finishConfirm(span, "contended",
		dErrors.New(dErrors.CodeConflict, "match was modified concurrently, retry"))
}

func (s *Service) tryConfirm(ctx context.Context, caller authority.AuthorizedIdentity, matchKey recordstore.Address, wasCorrect bool) (*Match, error) {
	now := requestcontext.Now(ctx)

	matchRec, err := s.records.Get(ctx, recordstore.NamespaceMatch, matchKey)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "match not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match")
	}
	match, err := decodeMatch(matchRec.Value)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode match")
	}
	if !match.IsLive() {
		return nil, dErrors.New(dErrors.CodeAlreadyConfirmed, "match already confirmed")
	}

	if _, err := s.users.Authorize(ctx, caller, match.Driver); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || dErrors.HasCode(err, dErrors.CodeForbidden) {
			return nil, dErrors.New(dErrors.CodeForbidden, "caller is not authorized for the match's driver")
		}
		return nil, err
	}

	if err := match.Complete(wasCorrect, now); err != nil {
		return nil, dErrors.New(dErrors.CodeAlreadyConfirmed, "match already confirmed")
	}
	matchValue, err := encodeMatch(match)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode match")
	}
	writes := []recordstore.Write{matchRec.Next(matchValue)}

	if s.autoRelease {
		chargerRec, c, err := charger.Load(ctx, s.records, match.Charger)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load matched charger")
		}
		if err := c.Release(now); err == nil {
			chargerValue, err := charger.Encode(c)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode charger")
			}
			writes = append(writes, chargerRec.Next(chargerValue))
		} else if s.logger != nil {
			s.logger.WarnContext(ctx, "matched charger was not allocated at confirmation",
				"charger", match.Charger.String(),
				"match", match.Key.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}

	if err := s.records.Commit(ctx, writes...); err != nil {
		if errors.Is(err, recordstore.ErrConcurrentModification) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit confirmation")
	}
	return match, nil
}

// Release returns an Allocated charger to Available after its match has
// completed. Only needed when auto-release is off; the caller must control
// the charger's owner.
//
// Errors: CodeNotFound for an unknown charger, CodeForbidden for a caller
// who does not control the owner, CodeChargerNotAvailable while the match
// is still pending, CodeConflict when concurrent writers beat both
// attempts. Releasing an Available charger is a no-op.
func (s *Service) Release(ctx context.Context, caller authority.AuthorizedIdentity, chargerKey charger.Key) error {
	ctx, span := s.tracer.Start(ctx, "matching.Release", trace.WithAttributes(
		attribute.String("charger.key", chargerKey.String()),
	))
	defer span.End()

	if _, err := s.users.Authorize(ctx, caller, chargerKey.Owner); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || dErrors.HasCode(err, dErrors.CodeForbidden) {
			return recordErr(span, dErrors.New(dErrors.CodeForbidden, "caller does not control the charger owner"))
		}
		return recordErr(span, err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.tryRelease(ctx, chargerKey)
		if errors.Is(err, recordstore.ErrConcurrentModification) {
			s.conflict(ctx, "release", attempt)
			continue
		}
		return recordErr(span, err)
	}
	return recordErr(span, dErrors.New(dErrors.CodeConflict, "charger was modified concurrently, retry"))
}

func (s *Service) tryRelease(ctx context.Context, chargerKey charger.Key) error {
	chargerRec, c, err := charger.Load(ctx, s.records, chargerKey)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "unknown charger")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load charger")
	}
	if c.CanAllocate() {
		return nil
	}

	matchRec, err := recordstore.Lookup(ctx, s.records, recordstore.NamespaceMatch, KeyFor(chargerKey))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match slot")
	}
	if !matchRec.Exists() {
		return dErrors.New(dErrors.CodeInvariantViolation, "allocated charger has no match")
	}
	match, err := decodeMatch(matchRec.Value)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode match")
	}
	if match.IsLive() {
		return dErrors.New(dErrors.CodeChargerNotAvailable, "charger has a pending match")
	}

	if err := c.Release(requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release charger")
	}
	chargerValue, err := charger.Encode(c)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode charger")
	}
	// The match write pins its version so a concurrent reservation of the
	// slot aborts this release.
	if err := s.records.Commit(ctx, chargerRec.Next(chargerValue), matchRec.Next(matchRec.Value)); err != nil {
		if errors.Is(err, recordstore.ErrConcurrentModification) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit release")
	}
	return nil
}

// Get loads a match.
func (s *Service) Get(ctx context.Context, matchKey recordstore.Address) (*Match, error) {
	rec, err := s.records.Get(ctx, recordstore.NamespaceMatch, matchKey)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "match not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match")
	}
	m, err := decodeMatch(rec.Value)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode match")
	}
	return m, nil
}

// ForCharger loads the match in a charger's slot, live or completed.
func (s *Service) ForCharger(ctx context.Context, chargerKey charger.Key) (*Match, error) {
	return s.Get(ctx, KeyFor(chargerKey))
}

func (s *Service) conflict(ctx context.Context, operation string, attempt int) {
	if s.metrics != nil {
		s.metrics.StoreConflicts.WithLabelValues(operation).Inc()
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "store conflict",
			"operation", operation,
			"attempt", attempt,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) finishReserve(span trace.Span, start time.Time, outcome string, err error) error {
	if s.metrics != nil {
		s.metrics.observeReserve(start, outcome)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	return recordErr(span, err)
}

func (s *Service) finishConfirm(span trace.Span, outcome string, err error) error {
	if s.metrics != nil {
		s.metrics.Confirmations.WithLabelValues(outcome).Inc()
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	return recordErr(span, err)
}

func recordErr(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}

func outcomeOf(err error) string {
	return string(dErrors.CodeOf(err))
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
		Decision: attrs.ExtractString(attributes, "decision"),
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "event", string(action))
	}
}
