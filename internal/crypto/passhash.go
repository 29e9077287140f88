// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Params are Argon2id cost parameters.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams are tuned for server-side hashing.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// Hasher derives and checks password hashes with fixed parameters.
type Hasher struct {
	p     Params
	dummy []byte // salt used to burn time on unknown accounts
}

// NewHasher constructs a Hasher. Zero params mean DefaultParams.
func NewHasher(p Params) *Hasher {
	if p == (Params{}) {
		p = DefaultParams
	}
	return &Hasher{p: p, dummy: make([]byte, p.SaltLen)}
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash returns the Argon2id hash of password under a fresh salt.
func (h *Hasher) Hash(password string) (hash, salt []byte, err error) {
	salt, err = RandBytes(h.p.SaltLen)
	if err != nil {
		return nil, nil, err
	}
	return h.derive(password, salt), salt, nil
}

// Verify reports whether password matches hash under salt in constant time.
func (h *Hasher) Verify(password string, salt, hash []byte) bool {
	return subtle.ConstantTimeCompare(h.derive(password, salt), hash) == 1
}

// Burn performs one derivation and discards it, so a miss on an unknown
// email costs as much as a wrong password.
func (h *Hasher) Burn(password string) {
	_ = h.derive(password, h.dummy)
}

func (h *Hasher) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, h.p.Time, h.p.Memory, h.p.Threads, h.p.KeyLen)
}
