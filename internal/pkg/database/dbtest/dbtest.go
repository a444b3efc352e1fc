// Package dbtest opens the Postgres instance used by integration tests.
package dbtest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

const schemaPrefix = "pointhub_test_"

// Open connects to TEST_DATABASE_URL inside a schema owned by the calling package,
// applies the schema and truncates ledger tables.
// go test runs packages in parallel, so each package gets its own search_path.
// The test is skipped when no database is configured or reachable.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	schema := SchemaName(wd)

	admin, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("db not available: %v", err)
	}
	_, err = admin.Exec(`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(schema))
	admin.Close()
	if err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}

	scoped, err := WithSearchPath(dsn, schema)
	if err != nil {
		t.Fatalf("scope dsn: %v", err)
	}
	db, err := sqlx.Connect("postgres", scoped)
	if err != nil {
		t.Fatalf("connect to schema %s: %v", schema, err)
	}
	db.SetMaxOpenConns(32)

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	truncate(t, db)
	t.Cleanup(func() {
		truncate(t, db)
		db.Close()
	})
	return db
}

// SchemaName maps a package directory to a Postgres identifier, e.g.
// ".../internal/domain/ledger" to "pointhub_test_ledger".
func SchemaName(dir string) string {
	base := strings.ToLower(filepath.Base(dir))

	var b strings.Builder
	b.WriteString(schemaPrefix)
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// WithSearchPath pins every pooled connection to schema. Both URL and
// key=value DSNs are accepted; lib/pq forwards search_path as a runtime parameter.
func WithSearchPath(dsn, schema string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	fields := strings.Fields(dsn)
	kept := fields[:0]
	for _, f := range fields {
		if !strings.HasPrefix(f, "search_path=") {
			kept = append(kept, f)
		}
	}
	return strings.Join(append(kept, "search_path="+schema), " "), nil
}

func truncate(t *testing.T, db *sqlx.DB) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE admin_audit_logs, business_xp_events, redemptions, rewards, award_claims, point_transactions, accounts`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// CreateAccount inserts an account with an opening balance recorded as an EARN,
// keeping the log consistent with point_balance.
func CreateAccount(t *testing.T, db *sqlx.DB, role string, balance int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	if _, err := db.Exec(`INSERT INTO accounts (id, role) VALUES ($1, $2)`, id, role); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if balance > 0 {
		_, err := db.Exec(`
			WITH upd AS (
				UPDATE accounts SET point_balance = $2, total_points_earned = $2 WHERE id = $1 RETURNING id
			)
			INSERT INTO point_transactions (id, account_id, amount, kind, reason, balance_before, balance_after)
			SELECT $3, id, $2, 'EARN', 'opening balance', 0, $2 FROM upd
		`, id, balance, uuid.New())
		if err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	return id
}
