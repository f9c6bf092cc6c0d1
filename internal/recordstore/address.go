package recordstore

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"

	dErrors "topcharger/pkg/domain-errors"
)

// Namespace tags a record kind. Records of different kinds share one keyed
// store; the namespace keeps their address spaces disjoint.
type Namespace string

const (
	NamespaceUser    Namespace = "user"
	NamespaceCharger Namespace = "charger"
	NamespaceMatch   Namespace = "match"
)

// AddressSize is the byte length of a record address.
const AddressSize = 32

// Address is the deterministic slot of a record. Any party holding the key
// material can compute it; no directory lookup exists.
type Address [AddressSize]byte

// Derive computes the address of a record from its namespace and key
// material. Each piece of material is length-prefixed so ("ab","c") and
// ("a","bc") never collide, and the namespace selects the BLAKE3 key so the
// same material addresses different slots in different namespaces.
func Derive(ns Namespace, material ...[]byte) Address {
	key := namespaceKey(ns)
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("recordstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	var prefix [8]byte
	for _, m := range material {
		binary.LittleEndian.PutUint64(prefix[:], uint64(len(m)))
		_, _ = hasher.Write(prefix[:])
		_, _ = hasher.Write(m)
	}
	var addr Address
	copy(addr[:], hasher.Sum(nil))
	return addr
}

// namespaceKey is the ASCII "topcharger.record.<ns>" zero-padded to the
// 32-byte key BLAKE3 keyed mode requires. Namespaces are short constants so
// truncation never happens in practice.
func namespaceKey(ns Namespace) [32]byte {
	var key [32]byte
	copy(key[:], "topcharger.record."+string(ns))
	return key
}

// ParseAddress decodes the 64-character hex form of an address.
func ParseAddress(s string) (Address, error) {
	var addr Address
	if len(s) != hex.EncodedLen(AddressSize) {
		return addr, dErrors.New(dErrors.CodeInvalidInput, "address must be 64 hex characters")
	}
	if _, err := hex.Decode(addr[:], []byte(s)); err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be hex encoded")
	}
	return addr, nil
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsNil reports whether a is the zero address.
func (a Address) IsNil() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Uint64 encodes n as the little-endian key material used for numeric key
// components.
func Uint64(n uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return b[:]
}
