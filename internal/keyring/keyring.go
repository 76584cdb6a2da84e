// Package keyring stores vault passwords in the OS credential store,
// keyed by vault ID.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "phantom"

// ErrNotFound is returned when no password is stored for a vault.
var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a vault password in the OS keyring
func SavePassword(vaultID string, password string) error {
	return keyring.Set(serviceName, vaultID, password)
}

// GetPassword retrieves a vault password from the OS keyring
func GetPassword(vaultID string) (string, error) {
	return keyring.Get(serviceName, vaultID)
}

// DeletePassword removes a vault password from the OS keyring
func DeletePassword(vaultID string) error {
	if err := keyring.Delete(serviceName, vaultID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// HasPassword checks if a password is stored for the vault
func HasPassword(vaultID string) bool {
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}
