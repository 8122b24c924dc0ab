// Package pagination implements keyset cursors for list endpoints.
package pagination

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// Cursor points just past the last item of a page.
type Cursor struct {
	// SortValue is the sort key of the last item, e.g. an id or an RFC 3339
	// timestamp.
	SortValue string `json:"v"`
	// ID breaks ties between items sharing SortValue.
	ID string `json:"id,omitempty"`
}

// Codec turns cursors into opaque page tokens and back.
type Codec interface {
	EncodeCursor(cursor *Cursor) (string, error)
	DecodeCursor(encoded string) (*Cursor, error)
}

// Base64Codec encodes cursors as URL-safe base64 JSON.
type Base64Codec struct{}

// EncodeCursor implements Codec.
func (Base64Codec) EncodeCursor(cursor *Cursor) (string, error) {
	plaintext, err := json.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(plaintext), nil
}

// DecodeCursor implements Codec.
func (Base64Codec) DecodeCursor(encoded string) (*Cursor, error) {
	plaintext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	var cursor Cursor
	if err := json.Unmarshal(plaintext, &cursor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cursor: %w", err)
	}
	return &cursor, nil
}

// CursorEncoder seals cursors with AES-256-GCM so clients cannot forge them.
type CursorEncoder struct {
	gcm cipher.AEAD
}

// NewCursorEncoder creates a new cursor encoder with the given key
func NewCursorEncoder(key []byte) (*CursorEncoder, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes for AES-256")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &CursorEncoder{gcm: gcm}, nil
}

// EncodeCursor implements Codec.
func (e *CursorEncoder) EncodeCursor(cursor *Cursor) (string, error) {
	plaintext, err := json.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(e.gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

// DecodeCursor implements Codec.
func (e *CursorEncoder) DecodeCursor(encoded string) (*Cursor, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	var cursor Cursor
	if err := json.Unmarshal(plaintext, &cursor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cursor: %w", err)
	}
	return &cursor, nil
}

// NewCodec returns an encrypting codec when key is set and a plain base64
// codec otherwise.
func NewCodec(key string) (Codec, error) {
	if key == "" {
		return Base64Codec{}, nil
	}
	return NewCursorEncoder([]byte(key))
}
