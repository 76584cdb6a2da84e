// Package crypto provides cryptographic operations for phantom.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from password via PBKDF2
//   - 12-byte nonce per file or blob, never reused with the same key
//   - Authenticated encryption prevents tampering
//
// Two sealing shapes are provided. Seal/Open take an external IV and
// produce bare ciphertext+tag, the on-disk format of encrypted vault
// files, whose IVs live in the folder manifest. Encrypt/Decrypt prepend
// a fresh IV to the blob for small self-contained values such as the
// key verification record.
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored unencrypted)
//   - 100,000 iterations, fixed per vault at creation
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
