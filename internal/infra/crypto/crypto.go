// Package crypto seals task blobs written by the git task store.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12
	// KeySize is the AES-256 key length.
	KeySize = 32

	memoFileName = "seal-memo.json"
	memoKeyLabel = "labelcrew seal memo"
)

var (
	// ErrInvalidKey is returned when the key is not 64 hex characters.
	ErrInvalidKey = errors.New("invalid encryption key: must be 32 bytes (64 hex characters)")
	// ErrOpenFailed is returned when a sealed blob cannot be authenticated.
	ErrOpenFailed = errors.New("decryption failed: invalid ciphertext or key")
	// ErrSealedTooShort is returned when a sealed blob is shorter than its nonce.
	ErrSealedTooShort = errors.New("ciphertext too short")
)

// Sealer encrypts blobs with AES-256-GCM.
//
// Sealing the same plaintext twice returns the same bytes, so an unchanged
// task keeps its blob hash and does not show up as a change when refs are
// pushed. The memo maps an HMAC of the plaintext to the sealed bytes. It is
// kept in memory and, when memoDir is set, in memoDir/seal-memo.json. The
// HMAC key is derived from the sealing key, so memo entries reveal nothing
// about plaintexts to a reader without it.
type Sealer struct {
	aead    cipher.AEAD
	memoKey []byte
	memo    map[string][]byte
	memoDir string
	mu      sync.RWMutex
}

// NewSealer creates a Sealer from a hex-encoded key.
func NewSealer(hexKey, memoDir string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(memoKeyLabel))

	s := &Sealer{
		aead:    aead,
		memoKey: mac.Sum(nil),
		memo:    make(map[string][]byte),
		memoDir: memoDir,
	}
	if memoDir != "" {
		if err := s.loadMemo(); err != nil {
			return nil, fmt.Errorf("load seal memo: %w", err)
		}
	}
	return s, nil
}

// Seal returns nonce || ciphertext || tag for plaintext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	key := s.memoEntry(plaintext)

	s.mu.RLock()
	sealed, ok := s.memo[key]
	s.mu.RUnlock()
	if ok {
		return sealed, nil
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed = s.aead.Seal(nonce, nonce, plaintext, nil)

	s.mu.Lock()
	s.memo[key] = sealed
	s.mu.Unlock()

	if s.memoDir != "" {
		if err := s.saveMemo(); err != nil {
			return nil, fmt.Errorf("save seal memo: %w", err)
		}
	}
	return sealed, nil
}

// Open authenticates and decrypts a blob produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize {
		return nil, ErrSealedTooShort
	}
	plaintext, err := s.aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

// Forget drops the memo so the next Seal of any plaintext uses a fresh nonce.
func (s *Sealer) Forget() error {
	s.mu.Lock()
	s.memo = make(map[string][]byte)
	s.mu.Unlock()

	if s.memoDir == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.memoDir, memoFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Sealer) memoEntry(plaintext []byte) string {
	mac := hmac.New(sha256.New, s.memoKey)
	mac.Write(plaintext)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Sealer) loadMemo() error {
	data, err := os.ReadFile(filepath.Join(s.memoDir, memoFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	memo := make(map[string][]byte)
	if err := json.Unmarshal(data, &memo); err != nil {
		// A corrupt memo only costs blob stability.
		return nil
	}
	s.mu.Lock()
	s.memo = memo
	s.mu.Unlock()
	return nil
}

func (s *Sealer) saveMemo() error {
	if err := os.MkdirAll(s.memoDir, 0o700); err != nil {
		return err
	}

	s.mu.RLock()
	data, err := json.Marshal(s.memo)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.memoDir, memoFileName), data, 0o600)
}
