package authority

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
)

// Audience is the aud claim every authority token carries.
const Audience = "topcharger"

// Claims are the JWT claims of an authority token. The subject is the
// caller's authority.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 authority tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey string, issuer string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Issue signs a token asserting that the bearer controls authority.
func (s *TokenService) Issue(authority domain.Authority, expiresIn time.Duration) (string, error) {
	if authority.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "authority cannot be empty")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   authority.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{Audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Verify checks the signature, expiry, issuer and audience of a token and
// returns the authority it asserts.
func (s *TokenService) Verify(tokenString string) (AuthorizedIdentity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AuthorizedIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return AuthorizedIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return AuthorizedIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	authority, err := domain.ParseAuthority(claims.Subject)
	if err != nil {
		return AuthorizedIdentity{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token subject")
	}
	return AuthorizedIdentity{Authority: authority}, nil
}

// VerifyToken satisfies the HTTP auth middleware's verifier.
func (s *TokenService) VerifyToken(tokenString string) (domain.Authority, error) {
	id, err := s.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return id.Authority, nil
}
