package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassword is returned when a blank password is submitted for hashing.
var ErrEmptyPassword = errors.New("password is empty")

// Hasher salts, hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (hash, salt string, err error)
	Verify(password, hash, salt string) bool
}

// Params tunes the argon2id key derivation.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams follows the argon2id recommendation from RFC 9106 (second option).
var DefaultParams = Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// Argon2Hasher stores hash and salt hex encoded, in separate columns.
type Argon2Hasher struct {
	params Params
	rand   io.Reader
}

var _ Hasher = (*Argon2Hasher)(nil)

func NewHasher(p Params) *Argon2Hasher {
	return &Argon2Hasher{params: p, rand: rand.Reader}
}

// Hash generates a fresh salt and derives the password hash from it.
func (h *Argon2Hasher) Hash(password string) (string, string, error) {
	if strings.TrimSpace(password) == "" {
		return "", "", ErrEmptyPassword
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(h.derive(password, salt)), hex.EncodeToString(salt), nil
}

// Verify recomputes the hash with the stored salt and compares in constant time.
func (h *Argon2Hasher) Verify(password, hash, salt string) bool {
	rawSalt, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(hash)
	if err != nil || len(want) == 0 {
		return false
	}
	got := h.derive(password, rawSalt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *Argon2Hasher) derive(password string, salt []byte) []byte {
	p := h.params
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}
