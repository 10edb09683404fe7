package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithdrawalMigrationEnforcesSinglePending(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_withdrawal_requests.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no withdrawal migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS withdrawal_requests",
		"idx_withdrawal_one_pending",
		"WHERE status = 'pending'",
		"CHECK (amount > 0)",
		"DROP TABLE IF EXISTS withdrawal_requests",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
