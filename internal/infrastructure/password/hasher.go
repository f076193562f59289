// Package password hashes and verifies account passwords.
//
// Two algorithms are supported: bcrypt (default) and argon2id. Verify
// dispatches on the stored hash format, so accounts hashed before an
// algorithm switch keep working.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	argon2Prefix  = "$argon2id$"
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// Config selects the algorithm and its work factor.
type Config struct {
	Algorithm     string
	BcryptCost    int
	Argon2Time    uint32
	Argon2Memory  uint32 // KiB
	Argon2Threads uint8
}

// Hasher implements ports.PasswordHasher.
type Hasher struct {
	cfg Config
}

// New validates cfg, fills zero values with defaults and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBcrypt
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Argon2Time == 0 {
		cfg.Argon2Time = 1
	}
	if cfg.Argon2Memory == 0 {
		cfg.Argon2Memory = 64 * 1024
	}
	if cfg.Argon2Threads == 0 {
		cfg.Argon2Threads = 4
	}

	switch cfg.Algorithm {
	case AlgorithmBcrypt, AlgorithmArgon2id:
	default:
		return nil, fmt.Errorf("password: unsupported algorithm %q", cfg.Algorithm)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password: bcrypt cost must be between %d and %d (got %d)", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	if cfg.Argon2Memory < 8*1024 {
		return nil, errors.New("password: argon2 memory must be >= 8192 KiB")
	}
	return &Hasher{cfg: cfg}, nil
}

// Hash returns a salted hash of plaintext. The empty string is accepted;
// inputs bcrypt cannot represent fail with domain.ErrPasswordTooLong.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if h.cfg.Algorithm == AlgorithmArgon2id {
		return h.hashArgon2(plaintext)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrPasswordTooLong
		}
		return "", fmt.Errorf("password: bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes never match.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if strings.HasPrefix(hash, argon2Prefix) {
		return verifyArgon2(plaintext, hash)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

func (h *Hasher) hashArgon2(plaintext string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.cfg.Argon2Time, h.cfg.Argon2Memory, h.cfg.Argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$HASH
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.cfg.Argon2Memory, h.cfg.Argon2Time, h.cfg.Argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2(plaintext, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != AlgorithmArgon2id {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(plaintext), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
