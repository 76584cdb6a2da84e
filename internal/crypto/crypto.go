package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 32     // Salt size in bytes
	KeySize      = 32     // AES-256 key size
	IVSize       = 12     // GCM nonce size
	TagSize      = 16     // GCM authentication tag size
	DefaultIters = 100000 // Default PBKDF2 iterations
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidIV         = errors.New("invalid iv size")
	ErrAuthFailed        = errors.New("authentication failed")
)

// KDF handles key derivation from passwords
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt and the default work factor
func NewKDF() (*KDF, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:       salt,
		Iterations: DefaultIters,
	}, nil
}

// KDFFrom creates a KDF from previously stored parameters
func KDFFrom(salt []byte, iterations int) *KDF {
	return &KDF{
		Salt:       salt,
		Iterations: iterations,
	}
}

// DeriveKey derives an encryption key from a password.
// Deterministic: the same password, salt and iterations always
// produce the same key.
func (k *KDF) DeriveKey(password []byte) []byte {
	return pbkdf2.Key(password, k.Salt, k.Iterations, KeySize, sha256.New)
}

// Encryptor provides authenticated encryption
type Encryptor struct {
	key  []byte
	aead cipher.AEAD
}

// NewEncryptor creates a new encryptor with the given key
func NewEncryptor(key []byte) (*Encryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	k := make([]byte, len(key))
	copy(k, key)

	return &Encryptor{key: k, aead: gcm}, nil
}

// Seal encrypts plaintext using AES-256-GCM with a caller-supplied IV.
// The result is ciphertext with the authentication tag appended; the IV
// is not part of the output and must be stored by the caller.
func (e *Encryptor) Seal(iv, plaintext []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, ErrInvalidIV
	}
	return e.aead.Seal(nil, iv, plaintext, nil), nil
}

// Open decrypts ciphertext produced by Seal using the same IV.
// Returns ErrAuthFailed on any tampering or key mismatch; a wrong
// password is indistinguishable from corrupted data here.
func (e *Encryptor) Open(iv, ciphertext []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, ErrInvalidIV
	}
	if len(ciphertext) < TagSize {
		return nil, ErrInvalidCiphertext
	}

	plaintext, err := e.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Encrypt encrypts plaintext into a self-contained blob with a fresh
// random IV prepended. Used for small stored values (key verification,
// recovery-wrapped secrets) where the blob travels as one unit.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	ciphertext := e.aead.Seal(nil, iv, plaintext, nil)

	result := make([]byte, IVSize+len(ciphertext))
	copy(result, iv)
	copy(result[IVSize:], ciphertext)

	return result, nil
}

// Decrypt decrypts a blob produced by Encrypt
func (e *Encryptor) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < IVSize+TagSize {
		return nil, ErrInvalidCiphertext
	}

	iv := blob[:IVSize]
	ciphertext := blob[IVSize:]

	plaintext, err := e.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Destroy clears the encryptor's key copy from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateIV generates a fresh random GCM nonce
func GenerateIV() ([]byte, error) {
	return GenerateRandom(IVSize)
}

// GenerateSalt generates a fresh random KDF salt
func GenerateSalt() ([]byte, error) {
	return GenerateRandom(SaltSize)
}
