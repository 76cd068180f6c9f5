// Package sharecode allocates the short public codes players use to find a quiz.
package sharecode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"quizmaster-service/internal/domain"
)

const (
	// Alphabet omits I, O, 0 and 1 so codes survive being read aloud.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// Length matches the 6 character input limit of the player form.
	Length = 6

	DefaultMaxAttempts = 8
)

// ClaimFunc tries to persist a quiz under code. It returns domain.ErrShareCodeTaken
// when the storage uniqueness constraint rejects the code.
type ClaimFunc func(ctx context.Context, code string) error

// Generator hands out share codes, retrying on collisions.
type Generator struct {
	maxAttempts int
	next        func() (string, error)
}

type Option func(*Generator)

// WithMaxAttempts bounds the number of candidates tried per allocation.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithSource replaces the random candidate source (tests use it to force collisions).
func WithSource(next func() (string, error)) Option {
	return func(g *Generator) {
		if next != nil {
			g.next = next
		}
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		maxAttempts: DefaultMaxAttempts,
		next:        Random,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allocate draws candidates until claim accepts one. Uniqueness is decided by claim,
// never by a separate existence check.
func (g *Generator) Allocate(ctx context.Context, claim ClaimFunc) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.next()
		if err != nil {
			return "", fmt.Errorf("generate share code: %w", err)
		}
		err = claim(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, domain.ErrShareCodeTaken) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrExhaustedRetries, g.maxAttempts)
}

// Random returns a uniformly random code over Alphabet.
func Random() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Normalize canonicalizes user input. It reports false when the input cannot be a
// share code, so callers can answer "not found" without a storage round trip.
func Normalize(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != Length {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return "", false
		}
	}
	return code, true
}
