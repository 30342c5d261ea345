// Package secret encrypts the secret fields of backend options before they
// are written to a mount table.
//
// A secret field such as "password" is stored as an empty string next to a
// "<field>_encrypted" entry holding base64(nonce || ciphertext), sealed with
// XChaCha20-Poly1305 under a key derived from the configured secret.
package secret

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/marmos91/extmounts/internal/logger"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// EncryptedSuffix is appended to a field name to form the key of its
// ciphertext.
const EncryptedSuffix = "_encrypted"

// DefaultFields are the option keys treated as secrets when none are given.
var DefaultFields = []string{"password"}

// keyInfo is the HKDF context string.
const keyInfo = "extmounts backend options v1"

// ErrEmptySecret is returned by NewCipher when no key material is given.
var ErrEmptySecret = errors.New("secret key must not be empty")

// Cipher implements mount.SecretTransform.
//
// Thread safety:
// A Cipher is safe for concurrent use.
type Cipher struct {
	aead   cipher.AEAD
	fields []string
}

// NewCipher derives an encryption key from secret with HKDF-SHA256 and
// returns a Cipher protecting the given option fields (DefaultFields when
// none are given).
func NewCipher(secret []byte, fields ...string) (*Cipher, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Cipher{aead: aead, fields: append([]string(nil), fields...)}, nil
}

// Fields returns the protected option keys.
func (c *Cipher) Fields() []string {
	return append([]string(nil), c.fields...)
}

// Encrypt returns a copy of options with every non-empty secret field moved
// into its encrypted counterpart. Fields that are empty or not strings are
// left alone, so encrypting twice is harmless.
func (c *Cipher) Encrypt(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}

	out := maps.Clone(options)
	for _, field := range c.fields {
		plain, ok := out[field].(string)
		if !ok || plain == "" {
			continue
		}

		sealed, err := c.seal([]byte(plain))
		if err != nil {
			// rand failure. Never store the secret in clear.
			logger.Error("secret: failed to encrypt option %q: %v", field, err)
			out[field] = ""
			continue
		}

		out[field] = ""
		out[field+EncryptedSuffix] = sealed
	}
	return out
}

// Decrypt reverses Encrypt. A ciphertext that cannot be opened (wrong key,
// corrupted value) yields an empty secret and a warning.
func (c *Cipher) Decrypt(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}

	out := maps.Clone(options)
	for _, field := range c.fields {
		encKey := field + EncryptedSuffix
		sealed, ok := out[encKey].(string)
		if !ok {
			continue
		}
		delete(out, encKey)

		plain, err := c.open(sealed)
		if err != nil {
			logger.Warn("secret: could not decrypt option %q: %v", field, err)
			out[field] = ""
			continue
		}
		out[field] = string(plain)
	}
	return out
}

func (c *Cipher) seal(plain []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(c.aead.Seal(nonce, nonce, plain, nil)), nil
}

func (c *Cipher) open(sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}
	if len(data) < c.aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	return c.aead.Open(nil, nonce, ciphertext, nil)
}
