package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/harrylevesque/qrgen/internal/utils"
)

const (
	// MasterKeyEnv names the environment variable holding the hex master key.
	MasterKeyEnv = "MASTER_KEY_HEX"
	// MasterKeyFile is read when MasterKeyEnv is unset.
	MasterKeyFile = "master.key"
)

var ErrNoMasterKey = errors.New("no master key configured")

// ReadMasterKey loads the 32-byte master key from MASTER_KEY_HEX, falling back to master.key.
func ReadMasterKey() ([]byte, error) {
	h := os.Getenv(MasterKeyEnv)
	if h == "" {
		if !utils.FileExists(MasterKeyFile) {
			return nil, fmt.Errorf("%w: %s not set and %s not found", ErrNoMasterKey, MasterKeyEnv, MasterKeyFile)
		}
		data, err := os.ReadFile(MasterKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", MasterKeyFile, err)
		}
		h = string(data)
	}
	return ParseMasterKey(h)
}

// ParseMasterKey decodes a hex master key (64 chars).
func ParseMasterKey(h string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(h))
	if err != nil {
		return nil, fmt.Errorf("master key hex decode error: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: master key must be 32 bytes (hex 64 chars)", ErrInvalidKeyLength)
	}
	return b, nil
}

// DeriveRecordKey derives the record store sealing key from the master key using HKDF-SHA256.
func DeriveRecordKey(master []byte) ([]byte, error) {
	if len(master) != 32 {
		return nil, ErrInvalidKeyLength
	}
	h := hkdf.New(sha256.New, master, nil, []byte("qrgen-record-store"))
	out := make([]byte, 32)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

var shortCodeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewShortCode returns a random lowercase code used as a dynamic record's short URL slug.
func NewShortCode() string {
	return strings.ToLower(shortCodeEncoding.EncodeToString(MustRandom(10)))
}

// MustRandom returns n random bytes or panics.
func MustRandom(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return b
}
