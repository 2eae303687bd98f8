package store

import (
	"context"
	"testing"

	"github.com/erazemk/inventar/internal/db"
)

func TestGetSessionSecretGeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetSessionSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetSessionSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettingRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	missing, err := GetSetting(ctx, database, "absent")
	if err != nil || missing != "" {
		t.Fatalf("expected empty value for unset key, got %q, %v", missing, err)
	}

	SetSetting(ctx, database, "theme", "dark")
	SetSetting(ctx, database, "theme", "light")

	got, _ := GetSetting(ctx, database, "theme")
	if got != "light" {
		t.Errorf("expected 'light', got %q", got)
	}
}
