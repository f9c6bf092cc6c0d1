// Package authority is the boundary between the marketplace core and
// whatever proves who a caller is. The core never verifies signatures
// itself: it receives an AuthorizedIdentity that this package (or a
// transport in front of it) has already vouched for, and asks Delegations
// whether that identity may act for another.
package authority

import (
	"context"

	"topcharger/pkg/domain"
	"topcharger/pkg/requestcontext"
)

// AuthorizedIdentity is a caller whose authority has been verified.
// Services accept it as a value; there is no ambient caller.
type AuthorizedIdentity struct {
	Authority domain.Authority
}

// Delegations reports whether actor may act on behalf of principal.
type Delegations interface {
	Permits(ctx context.Context, actor, principal domain.Authority) bool
}

// Controls reports whether caller may act for an identity controlled by
// controller: either directly or through a delegation. A nil Delegations
// allows direct control only.
func Controls(ctx context.Context, d Delegations, caller AuthorizedIdentity, controller domain.Authority) bool {
	if caller.Authority.IsNil() || controller.IsNil() {
		return false
	}
	if caller.Authority == controller {
		return true
	}
	if d == nil {
		return false
	}
	return d.Permits(ctx, caller.Authority, controller)
}

// FromContext returns the caller the auth middleware verified for this
// request. ok is false for anonymous requests.
func FromContext(ctx context.Context) (AuthorizedIdentity, bool) {
	a := requestcontext.Authority(ctx)
	return AuthorizedIdentity{Authority: a}, !a.IsNil()
}
