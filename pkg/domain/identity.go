package domain

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/sha3"

	dErrors "topcharger/pkg/domain-errors"
)

// IdentityHashSize is the byte length of an identity digest.
const IdentityHashSize = 32

// IdentityHash is the opaque 32-byte digest identifying a marketplace
// participant. Callers hash external identifiers before they reach the core
// (see HashExternalID); the core never sees the raw identifier.
//
// Invariant: a parsed IdentityHash is never all zeroes.
type IdentityHash [IdentityHashSize]byte

// ParseIdentityHash decodes the 64-character hex form of an identity hash.
//
// Errors: CodeInvalidInput when the value is not exactly 64 hex characters
// or decodes to the all-zero digest.
func ParseIdentityHash(s string) (IdentityHash, error) {
	var h IdentityHash
	if len(s) != hex.EncodedLen(IdentityHashSize) {
		return h, dErrors.New(dErrors.CodeInvalidInput, "identity hash must be 64 hex characters")
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return IdentityHash{}, dErrors.New(dErrors.CodeInvalidInput, "identity hash must be hex encoded")
	}
	if h.IsNil() {
		return IdentityHash{}, dErrors.New(dErrors.CodeInvalidInput, "identity hash cannot be zero")
	}
	return h, nil
}

// HashExternalID derives an identity hash from an external identifier such
// as a wallet address or OAuth subject. SHA3-256 keeps the digest width
// aligned with the on-chain identity slots.
func HashExternalID(external string) IdentityHash {
	return IdentityHash(sha3.Sum256([]byte(external)))
}

func (h IdentityHash) String() string {
	return hex.EncodeToString(h[:])
}

// IsNil reports whether h is the zero digest.
func (h IdentityHash) IsNil() bool {
	return h == IdentityHash{}
}

func (h IdentityHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *IdentityHash) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentityHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// maxAuthorityLength bounds authority strings; base58 wallet keys are 44
// characters and service principals stay well below this.
const maxAuthorityLength = 128

// Authority identifies the controller allowed to act for an identity: a
// wallet public key, a service principal, or any subject the authority
// boundary vouches for. The core compares authorities for equality only.
type Authority string

// ParseAuthority validates an authority at a trust boundary.
//
// Errors: CodeInvalidInput for empty, oversized, or whitespace-bearing values.
func ParseAuthority(s string) (Authority, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "authority cannot be empty")
	}
	if len(s) > maxAuthorityLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "authority is too long")
	}
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || !unicode.IsPrint(r) }) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "authority contains invalid characters")
	}
	return Authority(s), nil
}

func (a Authority) String() string {
	return string(a)
}

// IsNil returns true if the authority is empty.
func (a Authority) IsNil() bool {
	return a == ""
}
