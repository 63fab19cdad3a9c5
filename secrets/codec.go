// Package secrets implements the reversible transform between a plaintext
// bot token and its stored representation. Encryption is deliberately
// deterministic (fixed IV): the ciphertext doubles as the stable lookup key
// under which a shop is stored and registered in the fleet.
package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
)

// Codec encrypts and decrypts bot tokens with AES-256-CBC.
type Codec struct {
	key []byte
	iv  []byte
}

// NewCodec validates key material and constructs a Codec. The key must be
// 32 bytes and the IV one AES block.
func NewCodec(key, iv string) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("secrets: key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("secrets: iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	return &Codec{key: []byte(key), iv: []byte(iv)}, nil
}

// Digest returns the stored representation of a plaintext token. Equal
// tokens always produce equal digests.
func (c *Codec) Digest(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("secrets: cipher init: %w", err)
	}
	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(out, padded)
	return hex.EncodeToString(out), nil
}

// Reveal decrypts a stored digest back into the plaintext token.
func (c *Codec) Reveal(digest string) (string, error) {
	raw, err := hex.DecodeString(digest)
	if err != nil {
		return "", fmt.Errorf("secrets: malformed digest: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("secrets: digest length %d not block-aligned", len(raw))
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("secrets: cipher init: %w", err)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, c.iv).CryptBlocks(out, raw)
	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("secrets: empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("secrets: invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("secrets: invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
