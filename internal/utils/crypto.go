package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrIntegrity is returned when stored identity numbers fail their HMAC check
var ErrIntegrity = errors.New("identity data integrity check failed")

// Vault encrypts applicant identity numbers and tags them with an HMAC
type Vault struct {
	aead       cipher.AEAD
	hmacSecret []byte
}

// NewVault builds a vault from a hex-encoded AES key and an HMAC secret
func NewVault(hexKey, hmacSecret string) (*Vault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	if hmacSecret == "" {
		return nil, fmt.Errorf("hmac secret is empty")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &Vault{aead: aead, hmacSecret: []byte(hmacSecret)}, nil
}

// Encrypt returns hex(nonce || ciphertext). Empty input stays empty.
func (v *Vault) Encrypt(data string) (string, error) {
	if data == "" {
		return "", nil
	}
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(data), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (v *Vault) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}
	data, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	ns := v.aead.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("encrypted data too short: %d bytes", len(data))
	}
	plain, err := v.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}

// Tag computes the HMAC over the plaintext identity numbers
func (v *Vault) Tag(pan, aadhaar string) string {
	h := hmac.New(sha256.New, v.hmacSecret)
	h.Write([]byte(strings.ToUpper(pan) + "|" + aadhaar))
	return hex.EncodeToString(h.Sum(nil))
}

// Seal encrypts both numbers and returns them with their tag
func (v *Vault) Seal(pan, aadhaar string) (encPAN, encAadhaar, tag string, err error) {
	if encPAN, err = v.Encrypt(pan); err != nil {
		return "", "", "", fmt.Errorf("failed to encrypt PAN: %w", err)
	}
	if encAadhaar, err = v.Encrypt(aadhaar); err != nil {
		return "", "", "", fmt.Errorf("failed to encrypt Aadhaar: %w", err)
	}
	return encPAN, encAadhaar, v.Tag(pan, aadhaar), nil
}

// Open decrypts both numbers and verifies the tag
func (v *Vault) Open(encPAN, encAadhaar, tag string) (pan, aadhaar string, err error) {
	if pan, err = v.Decrypt(encPAN); err != nil {
		return "", "", fmt.Errorf("failed to decrypt PAN: %w", err)
	}
	if aadhaar, err = v.Decrypt(encAadhaar); err != nil {
		return "", "", fmt.Errorf("failed to decrypt Aadhaar: %w", err)
	}
	if !hmac.Equal([]byte(v.Tag(pan, aadhaar)), []byte(tag)) {
		return "", "", ErrIntegrity
	}
	return pan, aadhaar, nil
}

// Mask keeps the last four characters visible
func Mask(s string) string {
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat("X", len(s)-4) + s[len(s)-4:]
}
