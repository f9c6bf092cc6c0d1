// Package e2e drives the marketplace through its public HTTP API with
// Gherkin scenarios. Each scenario gets a fresh in-memory stack.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"topcharger/internal/authority"
	"topcharger/internal/charger"
	"topcharger/internal/identity"
	"topcharger/internal/matching"
	"topcharger/internal/recordstore"
	httptransport "topcharger/internal/transport/http"
	"topcharger/pkg/domain"
)

const signingKey = "e2e-signing-key"

// TestContext holds the server under test and the last response seen.
type TestContext struct {
	router http.Handler
	tokens *authority.TokenService

	lastStatus int
	lastBody   []byte
	matchKey   string
}

func NewTestContext() *TestContext {
	tc := &TestContext{}
	tc.Start(true)
	return tc
}

// Start replaces the server with an empty one.
func (tc *TestContext) Start(autoRelease bool) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records := recordstore.NewMemory()
	users := identity.New(records, identity.WithLogger(logger))
	tc.tokens = authority.NewTokenService(signingKey, "topcharger-e2e")
	tc.router = httptransport.NewRouter(httptransport.Dependencies{
		Users:    users,
		Chargers: charger.New(records, users, charger.WithLogger(logger)),
		Matches:  matching.New(records, users, matching.WithLogger(logger), matching.WithAutoRelease(autoRelease)),
		Verifier: tc.tokens,
		Logger:   logger,
	})
	tc.lastStatus, tc.lastBody, tc.matchKey = 0, nil, ""
}

// Request sends body as JSON. An empty wallet sends no bearer token.
func (tc *TestContext) Request(method, path, wallet string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if wallet != "" {
		token, err := tc.tokens.Issue(domain.Authority(wallet), time.Hour)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	tc.router.ServeHTTP(rr, req)
	tc.lastStatus, tc.lastBody = rr.Code, rr.Body.Bytes()
	return nil
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

func (tc *TestContext) LastBody() []byte { return tc.lastBody }

// ResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no %q field: %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) MatchKey() string { return tc.matchKey }

func (tc *TestContext) SetMatchKey(key string) { tc.matchKey = key }
