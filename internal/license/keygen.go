package license

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	apperrors "idmeapi/internal/errors"
)

const (
	// KeyPrefix is the literal first segment of every license key.
	KeyPrefix = "IDME"

	// keyAlphabet excludes the visually ambiguous glyphs 0, 1, I and O so
	// keys survive being read over the phone or retyped from a screenshot.
	keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	keySegments   = 3
	keySegmentLen = 4

	// maxKeyAttempts bounds the retry-until-unique loop. The key space is
	// 32^12 so exhaustion signals a broken store, not bad luck.
	maxKeyAttempts = 10
)

// KeyPattern is the structural sanity check for inbound keys. Deliberately
// looser than the generator alphabet: it admits 0/1/I/O so hand-typed
// lookups of legacy keys still reach the store.
var KeyPattern = regexp.MustCompile(`^IDME-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// KeyGenerator produces unique, collision-checked license keys.
type KeyGenerator struct {
	store Store
}

// NewKeyGenerator creates a generator backed by the given store's
// uniqueness check.
func NewKeyGenerator(store Store) *KeyGenerator {
	return &KeyGenerator{store: store}
}

// Generate returns a fresh key not present in the store, retrying up to
// maxKeyAttempts times before failing with ErrKeyGenerationExhausted.
func (g *KeyGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := randomKey()
		if err != nil {
			return "", fmt.Errorf("generate license key: %w", err)
		}
		taken, err := g.store.KeyExists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("check key uniqueness: %w", err)
		}
		if !taken {
			return key, nil
		}
	}
	return "", apperrors.ErrKeyGenerationExhausted
}

// randomKey builds IDME-XXXX-XXXX-XXXX with uniform draws from keyAlphabet.
func randomKey() (string, error) {
	var b strings.Builder
	b.WriteString(KeyPrefix)
	alphabetLen := big.NewInt(int64(len(keyAlphabet)))
	for i := 0; i < keySegments; i++ {
		b.WriteByte('-')
		for j := 0; j < keySegmentLen; j++ {
			n, err := rand.Int(rand.Reader, alphabetLen)
			if err != nil {
				return "", err
			}
			b.WriteByte(keyAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}
