package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	VaultsBucket   = []byte("vaults")   // vaultId -> VaultRecord JSON
	ConfigsBucket  = []byte("configs")  // vaultId -> VaultConfig JSON
	RecoveryBucket = []byte("recovery") // vaultId -> opaque recovery blob
	PrivateBucket  = []byte("private")  // schema metadata
)

// Private keys
var (
	keyVersion = []byte("version")
	keyCreated = []byte("created")
)

var (
	ErrVaultNotFound  = errors.New("vault not found")
	ErrImmutableField = errors.New("salt and iterations are immutable")

	// ErrStorage wraps persistence-layer failures so callers can treat
	// them uniformly without depending on bbolt error values.
	ErrStorage = errors.New("storage failure")
)

// Store persists vault records and configs in a BBolt database.
// Every write is durable when the call returns.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the vault database, creating its directory and
// bucket structure as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("%w: failed to create store directory: %v", ErrStorage, err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStorage, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{VaultsBucket, ConfigsBucket, RecoveryBucket, PrivateBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		private := tx.Bucket(PrivateBucket)
		if private.Get(keyVersion) == nil {
			if err := private.Put(keyVersion, []byte("1")); err != nil {
				return err
			}
			created, _ := time.Now().MarshalBinary()
			if err := private.Put(keyCreated, created); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize database: %v", ErrStorage, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// SaveVault stores a vault record keyed by its id. For an existing
// vault the salt, iterations and creation time must match the stored
// values; attempts to change them fail with ErrImmutableField.
func (s *Store) SaveVault(record VaultRecord) error {
	if record.VaultID == "" {
		return fmt.Errorf("%w: empty vault id", ErrStorage)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: failed to encode record: %v", ErrStorage, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		vaults := tx.Bucket(VaultsBucket)

		if existing := vaults.Get([]byte(record.VaultID)); existing != nil {
			var old VaultRecord
			if err := json.Unmarshal(existing, &old); err != nil {
				return fmt.Errorf("failed to decode stored record: %w", err)
			}
			if !bytes.Equal(old.Salt, record.Salt) ||
				old.Iterations != record.Iterations ||
				!old.CreatedTime.Equal(record.CreatedTime) {
				return ErrImmutableField
			}
		}

		return vaults.Put([]byte(record.VaultID), data)
	})
	if err != nil {
		if errors.Is(err, ErrImmutableField) {
			return err
		}
		return fmt.Errorf("%w: failed to save vault %s: %v", ErrStorage, record.VaultID, err)
	}
	return nil
}

// RotateKey replaces a vault's key derivation parameters and
// verification blob in one transaction. This is the only write path
// allowed to change the salt; SaveVault refuses so that ordinary
// record updates cannot corrupt the KDF parameters.
func (s *Store) RotateKey(vaultID string, salt []byte, iterations int, keyVerification []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		vaults := tx.Bucket(VaultsBucket)
		data := vaults.Get([]byte(vaultID))
		if data == nil {
			return ErrVaultNotFound
		}

		var record VaultRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to decode stored record: %w", err)
		}
		record.Salt = salt
		record.Iterations = iterations
		record.KeyVerification = keyVerification
		record.ModifiedTime = time.Now()

		updated, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		return vaults.Put([]byte(vaultID), updated)
	})
	if err != nil {
		if errors.Is(err, ErrVaultNotFound) {
			return fmt.Errorf("%w: %s", ErrVaultNotFound, vaultID)
		}
		return fmt.Errorf("%w: failed to rotate key for %s: %v", ErrStorage, vaultID, err)
	}
	return nil
}

// LoadVault retrieves a vault record. Unknown ids return
// ErrVaultNotFound, never a zero-valued record.
func (s *Store) LoadVault(vaultID string) (VaultRecord, error) {
	var record VaultRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(VaultsBucket).Get([]byte(vaultID))
		if data == nil {
			return ErrVaultNotFound
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		if errors.Is(err, ErrVaultNotFound) {
			return VaultRecord{}, fmt.Errorf("%w: %s", ErrVaultNotFound, vaultID)
		}
		return VaultRecord{}, fmt.Errorf("%w: failed to load vault %s: %v", ErrStorage, vaultID, err)
	}
	return record, nil
}

// DeleteVault removes a vault record with its config and recovery data.
// It reports whether the vault existed.
func (s *Store) DeleteVault(vaultID string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(vaultID)
		vaults := tx.Bucket(VaultsBucket)
		existed = vaults.Get(key) != nil
		if !existed {
			return nil
		}
		if err := vaults.Delete(key); err != nil {
			return err
		}
		if err := tx.Bucket(ConfigsBucket).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(RecoveryBucket).Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("%w: failed to delete vault %s: %v", ErrStorage, vaultID, err)
	}
	return existed, nil
}

// ListVaults returns all vault ids in sorted order.
func (s *Store) ListVaults() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(VaultsBucket).ForEach(func(k, v []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list vaults: %v", ErrStorage, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveConfig stores the per-vault policy.
func (s *Store) SaveConfig(vaultID string, config VaultConfig) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("%w: failed to encode config: %v", ErrStorage, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigsBucket).Put([]byte(vaultID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save config for %s: %v", ErrStorage, vaultID, err)
	}
	return nil
}

// LoadConfig retrieves the per-vault policy, falling back to defaults
// when none has been saved.
func (s *Store) LoadConfig(vaultID string) (VaultConfig, error) {
	config := DefaultConfig()
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigsBucket).Get([]byte(vaultID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &config)
	})
	if err != nil {
		return DefaultConfig(), fmt.Errorf("%w: failed to load config for %s: %v", ErrStorage, vaultID, err)
	}
	return config, nil
}

// SaveRecovery stores an opaque recovery blob for a vault.
func (s *Store) SaveRecovery(vaultID string, blob []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(RecoveryBucket).Put([]byte(vaultID), blob)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save recovery data for %s: %v", ErrStorage, vaultID, err)
	}
	return nil
}

// DeleteRecovery removes a vault's recovery blob if one exists.
func (s *Store) DeleteRecovery(vaultID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(RecoveryBucket).Delete([]byte(vaultID))
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete recovery data for %s: %v", ErrStorage, vaultID, err)
	}
	return nil
}

// LoadRecovery retrieves a vault's recovery blob, nil when absent.
func (s *Store) LoadRecovery(vaultID string) ([]byte, error) {
	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(RecoveryBucket).Get([]byte(vaultID))
		if data != nil {
			// Copy out: the slice is only valid during the transaction
			blob = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load recovery data for %s: %v", ErrStorage, vaultID, err)
	}
	return blob, nil
}

// Compact creates a compacted copy of the database and atomically
// replaces the original, reclaiming space after vault deletions.
func (s *Store) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create compact database: %v", ErrStorage, err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to copy data: %v", ErrStorage, err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to close compact database: %v", ErrStorage, err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to close source database: %v", ErrStorage, err)
	}

	// Atomic replace with rollback
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("%w: failed to back up original: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath)
		return fmt.Errorf("%w: failed to replace database: %v", ErrStorage, err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("%w: failed to reopen database: %v", ErrStorage, err)
	}
	return nil
}
