package journal

import (
	"path/filepath"
	"strings"
	"testing"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendAndRecent(t *testing.T) {
	j := openTestJournal(t)

	first, err := j.Append("vault_1", "seal", "/tmp/docs", StatusOK, "")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if first.ID == "" || first.Chain == "" {
		t.Error("Append should assign id and chain")
	}

	if _, err := j.Append("vault_1", "unseal", "/tmp/docs", StatusFailed, "wrong password"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	// Newest first
	if entries[0].Op != "unseal" {
		t.Errorf("Expected newest entry first, got op %s", entries[0].Op)
	}
	if entries[0].Detail != "wrong password" {
		t.Errorf("Detail mismatch: %q", entries[0].Detail)
	}
	if entries[1].Op != "seal" {
		t.Errorf("Expected seal second, got %s", entries[1].Op)
	}
}

func TestRecentLimit(t *testing.T) {
	j := openTestJournal(t)
	for i := 0; i < 5; i++ {
		if _, err := j.Append("v", "op", "", StatusOK, ""); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	entries, err := j.Recent(3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(entries))
	}
}

func TestVerifyChain(t *testing.T) {
	j := openTestJournal(t)

	ops := []string{"vault.create", "seal", "hide", "unhide", "unseal"}
	for _, op := range ops {
		if _, err := j.Append("vault_1", op, "/tmp/docs", StatusOK, ""); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	count, err := j.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}
	if count != len(ops) {
		t.Errorf("Verified count mismatch: got %d, want %d", count, len(ops))
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 3; i++ {
		if _, err := j.Append("vault_1", "seal", "/tmp/docs", StatusOK, ""); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Rewrite one row's payload behind the chain's back
	if _, err := j.conn.Exec(`UPDATE activity SET status = 'forged' WHERE rowid = 2`); err != nil {
		t.Fatalf("Failed to tamper: %v", err)
	}

	count, err := j.VerifyChain()
	if err == nil {
		t.Fatal("VerifyChain should fail on tampered entry")
	}
	if !strings.Contains(err.Error(), "chain broken") {
		t.Errorf("Unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 entry verified before the break, got %d", count)
	}
}

func TestVerifyEmptyJournal(t *testing.T) {
	j := openTestJournal(t)
	count, err := j.VerifyChain()
	if err != nil {
		t.Fatalf("VerifyChain on empty journal failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Empty journal should verify 0 entries, got %d", count)
	}
}
