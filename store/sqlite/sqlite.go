/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store, ledger.GuardStore, ledger.TxStore and
  ledger.CatalogStore using SQLite, plus the catalog/user write helpers
  the admin surface and demo scenarios use. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements touch the transactions table
  - No UPDATE or DELETE statements touch the scan_records table
  Catalog tables are upserted by the admin surface; the engine only reads
  them.

EXACTLY-ONCE CLAIMS:
  scan_records is keyed by token (PRIMARY KEY). ClaimScan performs a bare
  INSERT and treats a uniqueness violation as the duplicate signal - the
  insert attempt itself is the race arbiter; there is no separate
  existence check to race against. On conflict the existing row is read
  back so the caller can report who consumed the token and when.

CONCURRENCY:
  SQLite allows a single writer; writes are serialized under a mutex, and
  WithUserTx additionally serializes per user so balance-check-then-append
  cannot interleave for one user. The database is opened in WAL mode so
  readers don't block.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fieldloop/rewards-engine/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes writers; SQLite allows one at a time

	userMuGuard sync.Mutex
	userMu      map[ledger.UserID]*sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite is single-writer anyway, and the pool would
	// otherwise give each connection its own ":memory:" database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, userMu: make(map[ledger.UserID]*sync.Mutex)}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only point ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tx_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		tx_type TEXT NOT NULL CHECK (tx_type IN ('earning', 'redemption')),
		amount INTEGER NOT NULL CHECK (amount > 0),
		description TEXT,
		related_entity TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Balance computation and history paging (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_user
		ON transactions(user_id, created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_type
		ON transactions(user_id, tx_type);

	-- CRITICAL: exactly-once redemption. One row per physical code, ever.
	-- The PRIMARY KEY on token is the arbiter for concurrent claims.
	CREATE TABLE IF NOT EXISTS scan_records (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		scanned_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scan_records_user
		ON scan_records(user_id);

	-- Product catalog (admin-owned, read-only to the engine)
	CREATE TABLE IF NOT EXISTS products (
		token TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		point_value INTEGER NOT NULL CHECK (point_value > 0),
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Badge definitions (thresholds of zero are automatically satisfied)
	CREATE TABLE IF NOT EXISTS badges (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		required_points INTEGER NOT NULL DEFAULT 0,
		min_installations INTEGER NOT NULL DEFAULT 0,
		min_level INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Reward catalog
	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		cost INTEGER NOT NULL CHECK (cost > 0),
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Users (identity is established by the external login flow; this
	-- table only carries display data for history and support screens)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// timeLayout is RFC 3339 with fixed-width nanoseconds. Ledger timestamps
// are stored as TEXT and compared with ORDER BY and >=, which is only
// correct when the strings sort like the instants they encode. RFC3339Nano
// trims trailing zeros and breaks that: "...00.1Z" sorts after "...00.11Z".
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx so the same statement
// helpers serve direct calls and transactional views.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTION STORE (ledger.Store interface)
// =============================================================================

// AppendTransaction adds a transaction to the ledger.
func (s *Store) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, q querier, tx ledger.Transaction) error {
	if tx.Amount <= 0 {
		return ledger.ErrInvalidAmount
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (tx_id, user_id, tx_type, amount, description, related_entity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Description, tx.RelatedEntity,
		tx.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// TransactionsByUser returns a page of a user's transactions, newest
// first, ties broken by insertion order.
func (s *Store) TransactionsByUser(ctx context.Context, userID ledger.UserID, page ledger.Page) ([]ledger.Transaction, error) {
	return transactionsByUser(ctx, s.db, userID, page)
}

func transactionsByUser(ctx context.Context, q querier, userID ledger.UserID, page ledger.Page) ([]ledger.Transaction, error) {
	page = page.Normalize()
	rows, err := q.QueryContext(ctx, `
		SELECT tx_id, user_id, tx_type, amount, description, related_entity, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var (
			tx          ledger.Transaction
			description sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &description, &tx.RelatedEntity, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Description = description.String
		tx.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// BalanceComponents returns the earning and redemption sums for a user.
func (s *Store) BalanceComponents(ctx context.Context, userID ledger.UserID) (ledger.BalanceComponents, error) {
	return balanceComponents(ctx, s.db, userID)
}

func balanceComponents(ctx context.Context, q querier, userID ledger.UserID) (ledger.BalanceComponents, error) {
	var comp ledger.BalanceComponents
	err := q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN tx_type = 'earning' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tx_type = 'redemption' THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ?`,
		userID,
	).Scan(&comp.Earned, &comp.Redeemed)
	if err != nil {
		return ledger.BalanceComponents{}, fmt.Errorf("failed to sum balance: %w", err)
	}
	return comp, nil
}

// CountInstallations returns the all-time credited installation count.
func (s *Store) CountInstallations(ctx context.Context, userID ledger.UserID) (int64, error) {
	return countInstallations(ctx, s.db, userID, time.Time{})
}

// CountInstallationsSince counts installations credited at or after since.
func (s *Store) CountInstallationsSince(ctx context.Context, userID ledger.UserID, since time.Time) (int64, error) {
	return countInstallations(ctx, s.db, userID, since)
}

func countInstallations(ctx context.Context, q querier, userID ledger.UserID, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = ? AND tx_type = 'earning' AND related_entity <> ''`
	args := []any{userID}
	if !since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, since.UTC().Format(timeLayout))
	}

	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count installations: %w", err)
	}
	return n, nil
}

// PointsEarnedSince sums earnings credited at or after since. Dashboard
// statistics only; the balance is always the full replay.
func (s *Store) PointsEarnedSince(ctx context.Context, userID ledger.UserID, since time.Time) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ? AND tx_type = 'earning' AND created_at >= ?`,
		userID, since.UTC().Format(timeLayout),
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum monthly earnings: %w", err)
	}
	return sum, nil
}

// =============================================================================
// GUARD STORE (ledger.GuardStore interface)
// =============================================================================

// ClaimScan atomically inserts a scan record. The PRIMARY KEY on token
// makes the insert itself the duplicate arbiter.
func (s *Store) ClaimScan(ctx context.Context, rec ledger.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return claimScan(ctx, s.db, rec)
}

func claimScan(ctx context.Context, q querier, rec ledger.ScanRecord) error {
	token := ledger.ScanToken(strings.ToLower(string(rec.Token)))

	_, err := q.ExecContext(ctx, `
		INSERT INTO scan_records (token, user_id, scanned_at)
		VALUES (?, ?, ?)`,
		token, rec.UserID, rec.ScannedAt.UTC().Format(timeLayout),
	)
	if err == nil {
		return nil
	}
	if !isUniqueConstraintError(err) {
		return fmt.Errorf("failed to claim scan: %w", err)
	}

	existing, lookupErr := scanRecordOf(ctx, q, token)
	if lookupErr != nil || existing == nil {
		// The row that beat us must exist; fall back to a bare duplicate.
		return &ledger.DuplicateScanError{Token: token}
	}
	return &ledger.DuplicateScanError{
		Token:     existing.Token,
		ScannedBy: existing.UserID,
		ScannedAt: existing.ScannedAt,
	}
}

// ScanRecordOf returns the record for a token, or nil if unclaimed.
func (s *Store) ScanRecordOf(ctx context.Context, token ledger.ScanToken) (*ledger.ScanRecord, error) {
	return scanRecordOf(ctx, s.db, token)
}

func scanRecordOf(ctx context.Context, q querier, token ledger.ScanToken) (*ledger.ScanRecord, error) {
	var (
		rec       ledger.ScanRecord
		scannedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT token, user_id, scanned_at FROM scan_records WHERE token = ?`,
		strings.ToLower(string(token)),
	).Scan(&rec.Token, &rec.UserID, &scannedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up scan record: %w", err)
	}
	rec.ScannedAt, _ = time.Parse(timeLayout, scannedAt)
	return &rec, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The writer
// mutex is held for the whole scope, so the view methods below must not
// re-acquire it.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store, ledger.GuardStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &txView{tx: sqlTx}
	if err := fn(view, view); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// WithUserTx is WithTx serialized per user: the per-user mutex is held
// across the whole transaction so a balance check and its append cannot
// interleave with another spend for the same user.
func (s *Store) WithUserTx(ctx context.Context, userID ledger.UserID, fn func(ledger.Store, ledger.GuardStore) error) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.WithTx(ctx, fn)
}

func (s *Store) userLock(userID ledger.UserID) *sync.Mutex {
	s.userMuGuard.Lock()
	defer s.userMuGuard.Unlock()
	if _, ok := s.userMu[userID]; !ok {
		s.userMu[userID] = &sync.Mutex{}
	}
	return s.userMu[userID]
}

// txView routes store calls through an open *sql.Tx. No locking here: the
// parent holds the writer mutex for the transaction's lifetime.
type txView struct {
	tx *sql.Tx
}

func (tv *txView) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	return appendTransaction(ctx, tv.tx, tx)
}

func (tv *txView) TransactionsByUser(ctx context.Context, userID ledger.UserID, page ledger.Page) ([]ledger.Transaction, error) {
	return transactionsByUser(ctx, tv.tx, userID, page)
}

func (tv *txView) BalanceComponents(ctx context.Context, userID ledger.UserID) (ledger.BalanceComponents, error) {
	return balanceComponents(ctx, tv.tx, userID)
}

func (tv *txView) CountInstallations(ctx context.Context, userID ledger.UserID) (int64, error) {
	return countInstallations(ctx, tv.tx, userID, time.Time{})
}

func (tv *txView) CountInstallationsSince(ctx context.Context, userID ledger.UserID, since time.Time) (int64, error) {
	return countInstallations(ctx, tv.tx, userID, since)
}

func (tv *txView) ClaimScan(ctx context.Context, rec ledger.ScanRecord) error {
	return claimScan(ctx, tv.tx, rec)
}

func (tv *txView) ScanRecordOf(ctx context.Context, token ledger.ScanToken) (*ledger.ScanRecord, error) {
	return scanRecordOf(ctx, tv.tx, token)
}

// =============================================================================
// CATALOG STORE (ledger.CatalogStore interface)
// =============================================================================

// ProductByToken returns the product a token identifies.
func (s *Store) ProductByToken(ctx context.Context, token ledger.ScanToken) (*ledger.Product, error) {
	var (
		p      ledger.Product
		active int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT token, name, point_value, active FROM products WHERE token = ?`,
		strings.ToLower(string(token)),
	).Scan(&p.Token, &p.Name, &p.PointValue, &active)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUnknownProduct
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	p.Active = active != 0
	return &p, nil
}

// RewardByID returns an active reward. Inactive rewards are reported as
// unknown: they can no longer be redeemed.
func (s *Store) RewardByID(ctx context.Context, id ledger.RewardID) (*ledger.Reward, error) {
	var (
		r      ledger.Reward
		active int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, cost, active FROM rewards WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Name, &r.Cost, &active)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUnknownReward
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up reward: %w", err)
	}
	if active == 0 {
		return nil, ledger.ErrUnknownReward
	}
	r.Active = true
	return &r, nil
}

// ListRewards returns the full reward catalog, inactive rewards included.
// The read surface shows them greyed out; only RewardByID filters.
func (s *Store) ListRewards(ctx context.Context) ([]ledger.Reward, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, cost, active FROM rewards ORDER BY cost, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []ledger.Reward
	for rows.Next() {
		var (
			r      ledger.Reward
			active int
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Cost, &active); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		r.Active = active != 0
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// ListProducts returns the full product catalog.
func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT token, name, point_value, active FROM products ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		var (
			p      ledger.Product
			active int
		)
		if err := rows.Scan(&p.Token, &p.Name, &p.PointValue, &active); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Active = active != 0
		products = append(products, p)
	}
	return products, rows.Err()
}

// Badges returns all badge definitions.
func (s *Store) Badges(ctx context.Context) ([]ledger.Badge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, required_points, min_installations, min_level
		FROM badges ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()

	var badges []ledger.Badge
	for rows.Next() {
		var b ledger.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.RequiredPoints, &b.MinInstallations, &b.MinLevel); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// =============================================================================
// CATALOG WRITES - Admin surface and demo scenarios only
// =============================================================================

// SaveProduct upserts a product. Deactivating a product stops future
// redemptions; existing scan records and earnings are untouched.
func (s *Store) SaveProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (token, name, point_value, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			name = excluded.name,
			point_value = excluded.point_value,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		strings.ToLower(string(p.Token)), p.Name, p.PointValue, boolToInt(p.Active), now, now,
	)
	return err
}

// SaveBadge upserts a badge definition. Because badge membership is
// recomputed on every read, a threshold change takes effect immediately.
func (s *Store) SaveBadge(ctx context.Context, b ledger.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO badges (id, name, required_points, min_installations, min_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			required_points = excluded.required_points,
			min_installations = excluded.min_installations,
			min_level = excluded.min_level,
			updated_at = excluded.updated_at`,
		b.ID, b.Name, b.RequiredPoints, b.MinInstallations, b.MinLevel, now, now,
	)
	return err
}

// SaveReward upserts a reward.
func (s *Store) SaveReward(ctx context.Context, r ledger.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rewards (id, name, cost, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			cost = excluded.cost,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		r.ID, r.Name, r.Cost, boolToInt(r.Active), now, now,
	)
	return err
}

// =============================================================================
// USERS - Display data only; identity comes from the external login flow
// =============================================================================

// User carries display data for history and support screens.
type User struct {
	ID        ledger.UserID
	Name      string
	Phone     string
	CreatedAt time.Time
}

// SaveUser upserts a user record.
func (s *Store) SaveUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, phone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone`,
		u.ID, u.Name, u.Phone, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetUser returns a user, or ledger.ErrUserNotFound if unknown.
func (s *Store) GetUser(ctx context.Context, id ledger.UserID) (*User, error) {
	var (
		u         User
		phone     sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, phone, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &phone, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, phone, created_at FROM users ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u         User
			phone     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Name, &phone, &createdAt); err != nil {
			return nil, err
		}
		u.Phone = phone.String
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// RESET - Demo scenarios only. Never reachable from the engine itself.
// =============================================================================

// Reset clears every table. Only the demo scenario loader calls this.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "scan_records", "products", "badges", "rewards", "users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
