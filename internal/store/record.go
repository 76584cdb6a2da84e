package store

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// VaultRecord is the persistent identity of one protected folder.
// Salt, Iterations and CreatedTime are fixed at creation: changing the
// KDF parameters would orphan every previously encrypted file.
type VaultRecord struct {
	VaultID         string    `json:"vaultId"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	CreatedTime     time.Time `json:"created"`
	ModifiedTime    time.Time `json:"modified"`
	Salt            []byte    `json:"salt"`
	Iterations      int       `json:"iterations"`
	KeyVerification []byte    `json:"keyVerification"`
}

// VaultConfig is the per-vault operational policy. It is mutable
// independently of the record; a missing config means defaults.
type VaultConfig struct {
	AutoLock           bool          `json:"autoLock"`
	LockTimeout        time.Duration `json:"lockTimeout"`
	ClearClipboard     bool          `json:"clearClipboard"`
	ClipboardTimeout   time.Duration `json:"clipboardTimeout"`
	HideVaultDir       bool          `json:"hideVaultDir"`
	SecureDelete       bool          `json:"secureDelete"`
	SecureDeletePasses int           `json:"secureDeletePasses"`
}

// DefaultConfig returns the policy applied when none has been saved.
func DefaultConfig() VaultConfig {
	return VaultConfig{
		AutoLock:           false,
		LockTimeout:        300 * time.Second,
		ClearClipboard:     true,
		ClipboardTimeout:   30 * time.Second,
		HideVaultDir:       true,
		SecureDelete:       true,
		SecureDeletePasses: 3,
	}
}

// WipePasses returns the overwrite pass count this policy asks for,
// zero when secure deletion is disabled.
func (c VaultConfig) WipePasses() int {
	if !c.SecureDelete {
		return 0
	}
	if c.SecureDeletePasses < 1 {
		return 1
	}
	return c.SecureDeletePasses
}

// NewVaultID generates a vault identifier: creation time in unix
// milliseconds plus a random four-digit suffix.
func NewVaultID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("failed to generate vault id: %w", err)
	}
	return fmt.Sprintf("vault_%d_%d", time.Now().UnixMilli(), n.Int64()+1000), nil
}
