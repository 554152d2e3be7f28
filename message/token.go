package message

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// MaxTokenSize maximum of token size that can be used in message
const MaxTokenSize = 8

type Token []byte

func (t Token) String() string {
	return hex.EncodeToString(t)
}

// GenerateToken reads a token of n bytes from src. Use crypto/rand.Reader when
// tokens must be unpredictable; a seeded pkg/rand generator is enough for
// plain request/response correlation.
func GenerateToken(src io.Reader, n int) (Token, error) {
	if n < 0 || n > MaxTokenSize {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenLen, n)
	}
	if n == 0 {
		return nil, nil
	}
	b := make(Token, n)
	if _, err := io.ReadFull(src, b); err != nil {
		return nil, fmt.Errorf("cannot generate token: %w", err)
	}
	return b, nil
}

// GetToken generates a random token of MaxTokenSize bytes from crypto/rand.
func GetToken() (Token, error) {
	return GenerateToken(rand.Reader, MaxTokenSize)
}
