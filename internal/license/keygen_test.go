package license

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "idmeapi/internal/errors"
)

func TestGenerate(t *testing.T) {
	t.Run("produces well-formed unique keys", func(t *testing.T) {
		gen := NewKeyGenerator(newMemStore())

		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			key, err := gen.Generate(context.Background())
			require.NoError(t, err)
			assert.Regexp(t, KeyPattern, key)
			assert.False(t, seen[key], "duplicate key %s", key)
			seen[key] = true
		}
	})

	t.Run("generator alphabet excludes ambiguous glyphs", func(t *testing.T) {
		gen := NewKeyGenerator(newMemStore())

		for i := 0; i < 20; i++ {
			key, err := gen.Generate(context.Background())
			require.NoError(t, err)
			assert.NotContains(t, key[5:], "0")
			assert.NotContains(t, key[5:], "1")
			assert.NotContains(t, key[5:], "I")
			assert.NotContains(t, key[5:], "O")
		}
	})

	t.Run("exhaustion when every key is taken", func(t *testing.T) {
		store := newMemStore()
		store.allTaken = true
		gen := NewKeyGenerator(store)

		_, err := gen.Generate(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrKeyGenerationExhausted)
	})
}

func TestKeyPattern(t *testing.T) {
	valid := []string{
		"IDME-BA9P-L6Q9-GUNV",
		"IDME-0000-1111-IIII", // legacy hand-typed keys may carry ambiguous glyphs
	}
	for _, key := range valid {
		assert.Regexp(t, KeyPattern, key)
	}

	invalid := []string{
		"idme-ba9p-l6q9-gunv",
		"IDME-BA9P-L6Q9",
		"XDME-BA9P-L6Q9-GUNV",
		"IDME-BA9P-L6Q9-GUNVX",
		" IDME-BA9P-L6Q9-GUNV",
	}
	for _, key := range invalid {
		assert.NotRegexp(t, KeyPattern, key)
	}
}
