package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"
)

// TestTime is the fixed instant fixtures are stamped with.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// StringPtr returns &s.
func StringPtr(s string) *string {
	return &s
}

// SeedUser upserts a staff member and returns its id.
func SeedUser(t testing.TB, db *sql.DB, id, role string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, role) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role`,
		id, "Test "+id, role,
	); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return id
}

// SeedCustomer inserts a customer and returns its id.
func SeedCustomer(t testing.TB, db *sql.DB, name string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var id string
	if err := db.QueryRowContext(ctx,
		`INSERT INTO customers (name) VALUES ($1) RETURNING id`, name,
	).Scan(&id); err != nil {
		t.Fatalf("seed customer %s: %v", name, err)
	}
	return id
}

// SeedTemplate inserts an active checklist template and returns its id. Without items it
// gets a two-item default.
func SeedTemplate(t testing.TB, db *sql.DB, name, serviceType string, items ...string) string {
	t.Helper()
	if len(items) == 0 {
		items = []string{"Inspect site", "Sign off"}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("encode template items: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var id string
	if err := db.QueryRowContext(ctx,
		`INSERT INTO checklist_templates (name, service_type, items) VALUES ($1, $2, $3::jsonb) RETURNING id`,
		name, serviceType, string(raw),
	).Scan(&id); err != nil {
		t.Fatalf("seed template %s: %v", name, err)
	}
	return id
}
