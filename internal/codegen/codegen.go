// Package codegen produces short codes and claims them against the link store.
package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/sethvargo/go-retry"

	"linkgate/internal/repository"
)

// Alphabet omits characters that are easy to misread: 0 O o 1 l I.
const Alphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	DefaultLength      = 6
	DefaultMaxAttempts = 10
)

// ErrExhausted is returned when every attempt collided with an existing code.
var ErrExhausted = errors.New("short code generation exhausted")

type Generator struct {
	length      int
	maxAttempts int
	random      io.Reader
}

func NewGenerator(length, maxAttempts int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{length: length, maxAttempts: maxAttempts, random: rand.Reader}
}

// Generate returns a random code of the configured length.
func (g *Generator) Generate() (string, error) {
	code := make([]byte, g.length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range code {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random char index: %w", err)
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}

// ClaimFunc inserts a record under code. It must fail with an error wrapping
// repository.ErrDuplicateCode when the code is already taken.
type ClaimFunc[T any] func(ctx context.Context, code string) (T, error)

// Claim generates codes until claim succeeds, retrying only on duplicate-code
// conflicts and giving up with ErrExhausted after the attempt budget.
// It returns the claimed value and the number of attempts used.
func Claim[T any](ctx context.Context, g *Generator, claim ClaimFunc[T]) (T, int, error) {
	attempts := 0
	backoff := retry.WithMaxRetries(uint64(g.maxAttempts-1), retry.NewConstant(time.Millisecond))

	v, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (T, error) {
		var zero T
		attempts++

		code, err := g.Generate()
		if err != nil {
			return zero, err
		}
		v, err := claim(ctx, code)
		if errors.Is(err, repository.ErrDuplicateCode) {
			return zero, retry.RetryableError(err)
		}
		return v, err
	})
	if errors.Is(err, repository.ErrDuplicateCode) {
		return v, attempts, fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
	}
	return v, attempts, err
}
