package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestOrdersMigrationCarriesClaimIndex(t *testing.T) {
	content := readMigration(t, "create_orders")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"ON orders (dealer_id, payment_status, commission_paid, created_at)",
		"CHECK (final_amount = total_amount + tax_amount - discount_amount)",
		"DROP TABLE IF EXISTS orders",
	} {
		require.Contains(t, content, sub)
	}
}

func TestPayoutMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_dealer_payouts")
	for _, sub := range []string{
		"CHECK (amount > 0)",
		"CHECK (commission_rate >= 0 AND commission_rate <= 100)",
		"orders_included jsonb NOT NULL",
		"DEFERRABLE INITIALLY DEFERRED",
	} {
		require.Contains(t, content, sub)
	}
}

func TestLeadsMigrationPairsStatusWithAssignee(t *testing.T) {
	content := readMigration(t, "create_leads")
	require.Contains(t, content, "CHECK ((status = 'new') = (assigned_to IS NULL))")
	require.Contains(t, content, "ON leads (assigned_to, status)")
}

func TestSQLiteSchemaApplies(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, ApplySQLiteSchema(conn))

	for _, table := range []string{"dealers", "orders", "dealer_payouts", "leads", "outbox_events", "outbox_dlq"} {
		require.True(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestSplitStatementsDropsComments(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (id int);\n\nCREATE TABLE b (id int);\n")
	require.Len(t, stmts, 2)
	require.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, " Add Dealer Region! ", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20250310083000_add_dealer_region.sql"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "-- +goose Up"))
	require.Contains(t, string(body), "rollback add_dealer_region")

	_, err = CreateSQLMigration(dir, "add dealer region", now)
	require.Error(t, err)

	_, err = CreateSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}
