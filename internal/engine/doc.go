// Package engine provides the main phantom vault operations.
//
// Core operations include:
//   - CreateVault: Register a folder with a password-derived encryption key
//   - EncryptFolder: Seal every file into an encrypted sibling plus a manifest
//   - DecryptFolder: Restore every file listed in the manifest
//   - Status: Compare the manifest against the ciphertext on disk
//   - DeleteVault: Drop a vault from the registry
//
// Sealing and unsealing are all-or-nothing. A seal that fails removes
// the encrypted files it produced and never touches an original; an
// unseal that fails wipes the plaintext it produced and never touches
// the ciphertext. Originals are deleted only after the manifest is
// durably on disk.
package engine
