// Package cryptox implements the per-file codec: zstd compression and
// ChaCha20-Poly1305 authenticated encryption. Key and nonce are always
// supplied by the caller; the codec never generates or stores them.
package cryptox

import (
	"fmt"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the symmetric key length in bytes.
	KeySize = chacha20poly1305.KeySize
	// NonceSize is the nonce length in bytes.
	NonceSize = chacha20poly1305.NonceSize
	// Overhead is the authentication tag appended to every ciphertext.
	Overhead = chacha20poly1305.Overhead
)

// GenerateKey returns a fresh random key.
func GenerateKey() ([]byte, error) {
	return common.GenerateRandByteArray(KeySize)
}

// GenerateNonce returns a fresh random nonce.
func GenerateNonce() ([]byte, error) {
	return common.GenerateRandByteArray(NonceSize)
}

// Encrypt seals plaintext with ChaCha20-Poly1305.
//
// The key must be KeySize bytes and the nonce NonceSize bytes, otherwise
// common.ErrEncryptFailed is returned. The returned ciphertext carries the
// authentication tag at its end (len(plaintext)+Overhead bytes).
//
// Nonce reuse is not detected: every (key, nonce) pair must be used for a
// single plaintext, which the caller guarantees per record.
//
// Example:
//
//	key, _ := GenerateKey()
//	nonce, _ := GenerateNonce()
//	ct, err := Encrypt(key, nonce, []byte("hello"))
//	if err != nil {
//	    log.Fatal(err)
//	}
func Encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryptFailed, err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", common.ErrEncryptFailed, aead.NonceSize(), len(nonce))
	}

	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
//
// Any failure to verify the authentication tag (wrong key, wrong nonce,
// tampered bytes) is reported as common.ErrAuthenticationFailed. A key or
// nonce of the wrong size can never verify either, so it is reported the
// same way.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAuthenticationFailed, err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", common.ErrAuthenticationFailed, aead.NonceSize(), len(nonce))
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAuthenticationFailed, err)
	}

	return plaintext, nil
}
