package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/illarion/phantom/internal/config"
	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/engine"
	"github.com/illarion/phantom/internal/journal"
	"github.com/illarion/phantom/internal/keyring"
	"github.com/illarion/phantom/internal/platform"
	"github.com/illarion/phantom/internal/store"
)

// EnvPassword is consulted before the keyring and the terminal.
const EnvPassword = "PHANTOM_PASSWORD"

// App carries the resources shared by every command.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Journal *journal.Journal
	Log     zerolog.Logger
}

// OpenApp loads configuration and opens the vault registry and the
// activity journal. A journal that cannot be opened is logged and
// dropped; it never blocks vault operations.
func OpenApp(cmd *cli.Command) (*App, error) {
	cfg, err := config.LoadOrDefault(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.Log.Level)

	if cfg.Security.DisableCoreDumps {
		if err := platform.DisableCoreDumps(); err != nil {
			log.Warn().Err(err).Msg("could not disable core dumps")
		}
	}

	st, err := store.Open(cfg.Vault.StorePath())
	if err != nil {
		return nil, err
	}

	jr, err := journal.Open(cfg.Journal.ResolvePath(cfg.Vault.Home))
	if err != nil {
		log.Warn().Err(err).Msg("activity journal unavailable")
		jr = nil
	}

	return &App{Config: cfg, Store: st, Journal: jr, Log: log}, nil
}

// Close releases the app resources.
func (a *App) Close() {
	if a.Journal != nil {
		a.Journal.Close()
	}
	a.Store.Close()
}

// Engine builds a vault engine wired to the app's store, journal and
// logger.
func (a *App) Engine(opts ...engine.Option) *engine.Engine {
	base := []engine.Option{engine.WithLogger(a.Log)}
	if a.Journal != nil {
		base = append(base, engine.WithJournal(a.Journal))
	}
	return engine.New(a.Store, append(base, opts...)...)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// ReadPassword reads a password from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm() ([]byte, error) {
	password1, err := ReadPassword("Enter password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, fmt.Errorf("passwords do not match")
	}

	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// PasswordFromEnv reads the password from PHANTOM_PASSWORD.
// The caller is responsible for calling crypto.ClearBytes on the
// returned password.
func PasswordFromEnv() []byte {
	password := os.Getenv(EnvPassword)
	if password == "" {
		return nil
	}
	result := make([]byte, len(password))
	copy(result, []byte(password))
	return result
}

// ResolvePassword finds the password for a vault: environment first,
// then the OS keyring, then an interactive prompt.
func ResolvePassword(vaultID string) ([]byte, error) {
	if password := PasswordFromEnv(); password != nil {
		return password, nil
	}

	if vaultID != "" && keyring.HasPassword(vaultID) {
		stored, err := keyring.GetPassword(vaultID)
		if err == nil {
			return []byte(stored), nil
		}
	}

	return ReadPassword("Enter password: ")
}

// NewPassword resolves a password for vault creation: environment
// first, then a confirmation prompt.
func NewPassword() ([]byte, error) {
	if password := PasswordFromEnv(); password != nil {
		return password, nil
	}
	return ReadPasswordConfirm()
}

// confirm asks a yes/no question on the terminal.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}

// printJSON renders a value for scripting.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// friendlyError rewrites well-known sentinels for terminal users.
func friendlyError(err error) error {
	switch {
	case errors.Is(err, engine.ErrWrongPassword):
		return fmt.Errorf("wrong password")
	case errors.Is(err, store.ErrVaultNotFound):
		return fmt.Errorf("no such vault; run 'phantom ls' to see registered vaults")
	case errors.Is(err, engine.ErrAlreadyEncrypted):
		return fmt.Errorf("folder is already sealed; run 'phantom status' to inspect it")
	case errors.Is(err, engine.ErrNotEncrypted):
		return fmt.Errorf("folder is not sealed")
	default:
		return err
	}
}
