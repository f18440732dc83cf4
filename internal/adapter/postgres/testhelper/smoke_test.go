//go:build integration

package testhelper

import (
	"context"
	"testing"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	// The migrated schema must contain the deck table.
	var exists bool
	err := pool.QueryRow(
		context.Background(),
		`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'deck_entries')`,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("expected schema query to succeed, got error: %v", err)
	}

	if !exists {
		t.Fatal("expected deck_entries table after migrations")
	}
}
