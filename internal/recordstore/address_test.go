package recordstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "topcharger/pkg/domain-errors"
)

func TestDerive(t *testing.T) {
	owner := []byte("owner-authority-hash-0000000000")

	t.Run("same material yields the same address", func(t *testing.T) {
		assert.Equal(t, Derive(NamespaceCharger, owner, Uint64(7)), Derive(NamespaceCharger, owner, Uint64(7)))
	})

	t.Run("namespaces are disjoint", func(t *testing.T) {
		assert.NotEqual(t, Derive(NamespaceUser, owner), Derive(NamespaceMatch, owner))
	})

	t.Run("material boundaries matter", func(t *testing.T) {
		assert.NotEqual(t,
			Derive(NamespaceUser, []byte("ab"), []byte("c")),
			Derive(NamespaceUser, []byte("a"), []byte("bc")),
		)
	})

	t.Run("numeric components change the address", func(t *testing.T) {
		assert.NotEqual(t, Derive(NamespaceCharger, owner, Uint64(1)), Derive(NamespaceCharger, owner, Uint64(2)))
	})

	t.Run("never derives the zero address", func(t *testing.T) {
		assert.False(t, Derive(NamespaceMatch).IsNil())
	})
}

func TestParseAddress(t *testing.T) {
	addr := Derive(NamespaceUser, []byte("driver"))

	t.Run("round trips through text", func(t *testing.T) {
		text, err := addr.MarshalText()
		require.NoError(t, err)

		var decoded Address
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, addr, decoded)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseAddress("abcd")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-hex", func(t *testing.T) {
		bad := addr.String()[:62] + "zz"
		_, err := ParseAddress(bad)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestUint64LittleEndian(t *testing.T) {
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, Uint64(1))
	assert.Equal(t, []byte{0, 1, 0, 0, 0, 0, 0, 0}, Uint64(256))
}

func TestCodecDeterministic(t *testing.T) {
	type sample struct {
		B string
		A uint64
	}
	first, err := Marshal(sample{B: "x", A: 3})
	require.NoError(t, err)
	second, err := Marshal(sample{A: 3, B: "x"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var decoded sample
	require.NoError(t, Unmarshal(first, &decoded))
	assert.Equal(t, sample{B: "x", A: 3}, decoded)
}
