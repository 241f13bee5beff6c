package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRawKey_Format(t *testing.T) {
	raw, err := GenerateRawKey()
	require.NoError(t, err)

	assert.Len(t, raw, 58)
	assert.True(t, IsValidKeyFormat(raw))
}

func TestGenerateRawKey_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		raw, err := GenerateRawKey()
		require.NoError(t, err)
		require.False(t, seen[raw], "duplicate key generated")
		seen[raw] = true
	}
}

func TestIsValidKeyFormat(t *testing.T) {
	valid, err := GenerateRawKey()
	require.NoError(t, err)

	tests := []struct {
		raw  string
		want bool
	}{
		{valid, true},
		{"", false},
		{"dynamo-sk-", false},
		{"dynamo-sk-z" + valid[len(valid)-47:], false},                        // non-hex char
		{"dynamo-sk-0123456789ABCDEF0123456789abcdef0123456789abcdef", false}, // uppercase
		{"sk-0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{valid + "0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidKeyFormat(tt.raw), tt.raw)
	}
}

func TestHashKey(t *testing.T) {
	h := HashKey("dynamo-sk-0123456789abcdef0123456789abcdef0123456789abcdef")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKey("dynamo-sk-0123456789abcdef0123456789abcdef0123456789abcdef"))
	assert.NotEqual(t, h, HashKey("dynamo-sk-ffffffffffffffffffffffffffffffffffffffffffffffff"))
}

func TestDisplayPrefix(t *testing.T) {
	raw, err := GenerateRawKey()
	require.NoError(t, err)

	prefix := DisplayPrefix(raw)
	assert.Len(t, prefix, 12)
	assert.Equal(t, raw[:12], prefix)
}
