package export_test

import (
	"testing"

	"github.com/kwservices/xptracker/internal/export"
	"github.com/stretchr/testify/assert"
)

// Known vectors for a little-endian id with the salt "test_salt".
func TestHashIDVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		steamID    uint64
		hashType   export.HashType
		iterations uint32
		memoryMB   uint32
		expected   string
	}{
		{
			name:       "sha256 single round",
			steamID:    12345,
			hashType:   export.HashTypeSHA256,
			iterations: 1,
			expected:   "ce3807a728757fad6c9eb6f3934c71363857bca5f8f9d7a67452543acf47ac42",
		},
		{
			name:       "sha256 chained rounds",
			steamID:    12345,
			hashType:   export.HashTypeSHA256,
			iterations: 3,
			expected:   "2f9ed488c8e0ccce3329b47ebb9c6b7870448da2ef857c9b9b1543c29bfd1d82",
		},
		{
			name:       "sha256 other id",
			steamID:    54321,
			hashType:   export.HashTypeSHA256,
			iterations: 1,
			expected:   "c81079f1df424a4563c3a79a4557e8d0c3735f57cb110825955f85c4d8902511",
		},
		{
			name:       "argon2id minimal memory",
			steamID:    12345,
			hashType:   export.HashTypeArgon2id,
			iterations: 1,
			memoryMB:   1,
			expected:   "70734f36c4da16b8322f487906015143b6fd316b76b2e2dfd627b60f819702d6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected,
				export.HashID(tt.steamID, "test_salt", tt.hashType, tt.iterations, tt.memoryMB))
		})
	}
}

func TestHashIDSaltSensitivity(t *testing.T) {
	t.Parallel()

	const steamID = 76561198000000001

	first := export.HashID(steamID, "season-1", export.HashTypeSHA256, 2, 0)

	assert.Len(t, first, 64)
	assert.Equal(t, first, export.HashID(steamID, "season-1", export.HashTypeSHA256, 2, 0))
	assert.NotEqual(t, first, export.HashID(steamID, "season-2", export.HashTypeSHA256, 2, 0))
	assert.NotEqual(t, first, export.HashID(steamID+1, "season-1", export.HashTypeSHA256, 2, 0))
}

func TestHashTypeValid(t *testing.T) {
	t.Parallel()

	for hashType, valid := range map[export.HashType]bool{
		export.HashTypeArgon2id: true,
		export.HashTypeSHA256:   true,
		"md5":                   false,
		"":                      false,
	} {
		assert.Equal(t, valid, hashType.Valid(), "hash type %q", hashType)
	}
}
