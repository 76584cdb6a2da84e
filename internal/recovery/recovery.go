// Package recovery lets a vault password be recovered from security
// question answers.
//
// At setup time the normalized answers are run through the same KDF as
// passwords and the resulting key seals a copy of the vault password.
// An attempt that produces the wrong key simply fails to open the seal.
// Attempts are scarce: three failures lock recovery for the vault
// permanently, and a token bucket throttles guessing within a running
// process.
package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/illarion/phantom/internal/crypto"
	"github.com/illarion/phantom/internal/store"
)

// MaxAttempts is the lifetime failure budget per vault.
const MaxAttempts = 3

var (
	ErrNoRecovery     = errors.New("recovery is not set up for this vault")
	ErrBadAnswers     = errors.New("recovery answers did not match")
	ErrRecoveryLocked = errors.New("recovery is locked after too many failed attempts")
	ErrThrottled      = errors.New("recovery attempts are rate limited, retry later")
)

// Info is the persisted recovery state for one vault.
type Info struct {
	Questions         []string `json:"questions"`
	Salt              []byte   `json:"salt"`
	Iterations        int      `json:"iterations"`
	WrappedPassword   []byte   `json:"wrappedPassword"`
	AttemptsRemaining int      `json:"attemptsRemaining"`
	Locked            bool     `json:"locked"`
}

// Recoverer manages recovery state through the vault store.
type Recoverer struct {
	st *store.Store

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Recoverer backed by the given store.
func New(st *store.Store) *Recoverer {
	return &Recoverer{
		st:       st,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Setup records questions and seals the vault password under a key
// derived from the answers. Existing recovery state for the vault is
// replaced, including a lock.
func (r *Recoverer) Setup(vaultID string, questions, answers []string, password []byte) error {
	if len(questions) == 0 || len(questions) != len(answers) {
		return fmt.Errorf("questions and answers must be non-empty and match")
	}
	for i, a := range answers {
		if normalizeAnswer(a) == "" {
			return fmt.Errorf("answer %d is empty", i+1)
		}
	}

	kdf, err := crypto.NewKDF()
	if err != nil {
		return err
	}
	key := kdf.DeriveKey(answerMaterial(answers))
	defer crypto.ClearBytes(key)

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return err
	}
	defer enc.Destroy()

	wrapped, err := enc.Encrypt(password)
	if err != nil {
		return fmt.Errorf("failed to seal password: %w", err)
	}

	info := Info{
		Questions:         questions,
		Salt:              kdf.Salt,
		Iterations:        kdf.Iterations,
		WrappedPassword:   wrapped,
		AttemptsRemaining: MaxAttempts,
	}
	return r.save(vaultID, info)
}

// Questions returns the stored questions for a vault.
func (r *Recoverer) Questions(vaultID string) ([]string, error) {
	info, err := r.load(vaultID)
	if err != nil {
		return nil, err
	}
	return info.Questions, nil
}

// Attempt tries to recover the vault password from answers. The caller
// owns the returned password and should clear it after use.
func (r *Recoverer) Attempt(vaultID string, answers []string) ([]byte, error) {
	info, err := r.load(vaultID)
	if err != nil {
		return nil, err
	}
	if info.Locked || info.AttemptsRemaining <= 0 {
		return nil, ErrRecoveryLocked
	}
	if !r.limiter(vaultID).Allow() {
		return nil, ErrThrottled
	}

	kdf := crypto.KDFFrom(info.Salt, info.Iterations)
	key := kdf.DeriveKey(answerMaterial(answers))
	defer crypto.ClearBytes(key)

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	password, err := enc.Decrypt(info.WrappedPassword)
	if err != nil {
		info.AttemptsRemaining--
		if info.AttemptsRemaining <= 0 {
			info.Locked = true
		}
		if saveErr := r.save(vaultID, info); saveErr != nil {
			return nil, saveErr
		}
		if info.Locked {
			return nil, ErrRecoveryLocked
		}
		return nil, fmt.Errorf("%w: %d attempts remaining", ErrBadAnswers, info.AttemptsRemaining)
	}

	// Success restores the full budget
	if info.AttemptsRemaining != MaxAttempts {
		info.AttemptsRemaining = MaxAttempts
		if err := r.save(vaultID, info); err != nil {
			crypto.ClearBytes(password)
			return nil, err
		}
	}
	return password, nil
}

// AttemptsRemaining reports the failure budget left for a vault.
func (r *Recoverer) AttemptsRemaining(vaultID string) (int, error) {
	info, err := r.load(vaultID)
	if err != nil {
		return 0, err
	}
	if info.Locked {
		return 0, nil
	}
	return info.AttemptsRemaining, nil
}

func (r *Recoverer) load(vaultID string) (Info, error) {
	blob, err := r.st.LoadRecovery(vaultID)
	if err != nil {
		return Info{}, err
	}
	if blob == nil {
		return Info{}, ErrNoRecovery
	}
	var info Info
	if err := json.Unmarshal(blob, &info); err != nil {
		return Info{}, fmt.Errorf("failed to decode recovery data: %w", err)
	}
	return info, nil
}

func (r *Recoverer) save(vaultID string, info Info) error {
	blob, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode recovery data: %w", err)
	}
	return r.st.SaveRecovery(vaultID, blob)
}

// limiter returns the per-vault token bucket: one attempt per 30
// seconds with a burst of MaxAttempts.
func (r *Recoverer) limiter(vaultID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim := r.limiters[vaultID]
	if lim == nil {
		lim = rate.NewLimiter(rate.Limit(1.0/30.0), MaxAttempts)
		r.limiters[vaultID] = lim
	}
	return lim
}

// answerMaterial produces the deterministic KDF input for a set of
// answers. Case, surrounding space and internal runs of whitespace do
// not count as differences.
func answerMaterial(answers []string) []byte {
	parts := make([]string, len(answers))
	for i, a := range answers {
		parts[i] = normalizeAnswer(a)
	}
	return []byte(strings.Join(parts, "\n"))
}

func normalizeAnswer(a string) string {
	return strings.Join(strings.Fields(strings.ToLower(a)), " ")
}
