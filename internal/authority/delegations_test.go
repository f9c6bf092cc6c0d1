package authority

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topcharger/pkg/domain"
)

const delegationYAML = `
services:
  - backend-signer
delegates:
  driver-wallet:
    - driver-phone
`

func TestParseDelegations(t *testing.T) {
	ctx := context.Background()
	d, err := ParseDelegations([]byte(delegationYAML))
	require.NoError(t, err)

	assert.True(t, d.Permits(ctx, "backend-signer", "anyone"))
	assert.True(t, d.Permits(ctx, "driver-phone", "driver-wallet"))
	assert.False(t, d.Permits(ctx, "driver-phone", "host-wallet"))
	assert.False(t, d.Permits(ctx, "driver-wallet", "driver-phone"))
}

func TestParseDelegationsRejectsInvalidAuthorities(t *testing.T) {
	_, err := ParseDelegations([]byte("services:\n  - \"has space\"\n"))
	require.Error(t, err)

	_, err = ParseDelegations([]byte("delegates: [not, a, map]"))
	require.Error(t, err)
}

func TestLoadDelegations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delegations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(delegationYAML), 0o600))

	d, err := LoadDelegations(path)
	require.NoError(t, err)
	assert.True(t, d.Permits(context.Background(), "backend-signer", "x"))

	_, err = LoadDelegations(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestControls(t *testing.T) {
	ctx := context.Background()
	d := NewStaticDelegations(nil, map[domain.Authority][]domain.Authority{
		"driver-wallet": {"driver-phone"},
	})

	tests := []struct {
		name       string
		caller     domain.Authority
		controller domain.Authority
		delegs     Delegations
		want       bool
	}{
		{"self", "driver-wallet", "driver-wallet", nil, true},
		{"stranger without table", "other", "driver-wallet", nil, false},
		{"delegate", "driver-phone", "driver-wallet", d, true},
		{"stranger", "other", "driver-wallet", d, false},
		{"empty caller", "", "driver-wallet", d, false},
		{"empty controller", "driver-wallet", "", d, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Controls(ctx, tt.delegs, AuthorizedIdentity{Authority: tt.caller}, tt.controller)
			assert.Equal(t, tt.want, got)
		})
	}
}
