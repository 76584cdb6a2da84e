// Package store provides the BBolt database holding vault metadata.
//
// Database structure uses four buckets:
//   - vaults: one VaultRecord per vault id (identity, KDF parameters,
//     key verification), JSON encoded
//   - configs: per-vault operational policy, JSON encoded
//   - recovery: opaque recovery blobs managed by the recovery package
//   - private: schema version and creation time
//
// Vault content never passes through this database; sealed folders
// carry their own manifest. Records hold only what is needed to find a
// folder again and to verify a password against it.
//
// BBolt provides ACID transactions, file locking, and durable writes:
// a record is on disk before Save returns.
package store
