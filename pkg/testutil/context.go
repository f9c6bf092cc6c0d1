package testutil

import (
	"net/http"

	"topcharger/pkg/domain"
	"topcharger/pkg/requestcontext"
)

// WithAuthority marks the request as authenticated for authority, the way
// the auth middleware does after verifying a bearer token. An empty
// authority leaves the request anonymous.
func WithAuthority(req *http.Request, authority string) *http.Request {
	if authority == "" {
		return req
	}
	ctx := requestcontext.WithAuthority(req.Context(), domain.Authority(authority))
	return req.WithContext(ctx)
}
