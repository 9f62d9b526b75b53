// Package store provides Store implementations.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fieldloop/rewards-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.Mutex
	userLocks    map[ledger.UserID]*sync.Mutex
	transactions map[ledger.UserID][]ledger.Transaction
	scans        map[ledger.ScanToken]ledger.ScanRecord

	products map[ledger.ScanToken]ledger.Product
	badges   []ledger.Badge
	rewards  map[ledger.RewardID]ledger.Reward
}

func NewMemory() *Memory {
	return &Memory{
		userLocks:    make(map[ledger.UserID]*sync.Mutex),
		transactions: make(map[ledger.UserID][]ledger.Transaction),
		scans:        make(map[ledger.ScanToken]ledger.ScanRecord),
		products:     make(map[ledger.ScanToken]ledger.Product),
		rewards:      make(map[ledger.RewardID]ledger.Reward),
	}
}

// =============================================================================
// STORE (ledger.Store)
// =============================================================================

// AppendTransaction adds a single transaction. Append-only.
func (m *Memory) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

func (m *Memory) appendLocked(tx ledger.Transaction) error {
	if tx.Amount <= 0 {
		return ledger.ErrInvalidAmount
	}
	m.transactions[tx.UserID] = append(m.transactions[tx.UserID], tx)
	return nil
}

// TransactionsByUser returns transactions newest first, insertion order
// breaking ties.
func (m *Memory) TransactionsByUser(_ context.Context, userID ledger.UserID, page ledger.Page) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page = page.Normalize()
	txs := m.transactions[userID]

	// Newest first: walk the append-ordered slice backwards.
	reversed := make([]ledger.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		reversed = append(reversed, txs[i])
	}

	if page.Offset >= len(reversed) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(reversed) {
		end = len(reversed)
	}
	out := make([]ledger.Transaction, end-page.Offset)
	copy(out, reversed[page.Offset:end])
	return out, nil
}

func (m *Memory) BalanceComponents(_ context.Context, userID ledger.UserID) (ledger.BalanceComponents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.componentsLocked(userID), nil
}

func (m *Memory) componentsLocked(userID ledger.UserID) ledger.BalanceComponents {
	var comp ledger.BalanceComponents
	for _, tx := range m.transactions[userID] {
		switch tx.Type {
		case ledger.TxEarning:
			comp.Earned += tx.Amount
		case ledger.TxRedemption:
			comp.Redeemed += tx.Amount
		}
	}
	return comp
}

func (m *Memory) CountInstallations(_ context.Context, userID ledger.UserID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, tx := range m.transactions[userID] {
		if tx.IsInstallation() {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountInstallationsSince(_ context.Context, userID ledger.UserID, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, tx := range m.transactions[userID] {
		if tx.IsInstallation() && !tx.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// GUARD STORE (ledger.GuardStore)
// =============================================================================

// ClaimScan is the atomic insert-if-absent arbiter. Under the store mutex
// the existence check and the insert are one indivisible step.
func (m *Memory) ClaimScan(_ context.Context, rec ledger.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimLocked(rec)
}

func (m *Memory) claimLocked(rec ledger.ScanRecord) error {
	token := ledger.ScanToken(strings.ToLower(string(rec.Token)))
	if existing, ok := m.scans[token]; ok {
		return &ledger.DuplicateScanError{
			Token:     existing.Token,
			ScannedBy: existing.UserID,
			ScannedAt: existing.ScannedAt,
		}
	}
	rec.Token = token
	m.scans[token] = rec
	return nil
}

func (m *Memory) ScanRecordOf(_ context.Context, token ledger.ScanToken) (*ledger.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.scans[ledger.ScanToken(strings.ToLower(string(token)))]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore)
// =============================================================================

// WithTx executes fn atomically. For the memory store this is simulated
// with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store, ledger.GuardStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txView{parent: m}
	if err := fn(view, view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// WithUserTx is WithTx serialized per user. The per-user mutex is held
// across snapshot, fn, and commit so two concurrent redemptions for the
// same user can never both pass a balance check.
func (m *Memory) WithUserTx(ctx context.Context, userID ledger.UserID, fn func(ledger.Store, ledger.GuardStore) error) error {
	m.userLock(userID).Lock()
	defer m.userLock(userID).Unlock()
	return m.WithTx(ctx, fn)
}

func (m *Memory) userLock(userID ledger.UserID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.userLocks[userID]; !ok {
		m.userLocks[userID] = &sync.Mutex{}
	}
	return m.userLocks[userID]
}

type memorySnapshot struct {
	transactions map[ledger.UserID][]ledger.Transaction
	scans        map[ledger.ScanToken]ledger.ScanRecord
}

func (m *Memory) snapshot() memorySnapshot {
	txsCopy := make(map[ledger.UserID][]ledger.Transaction, len(m.transactions))
	for k, v := range m.transactions {
		txsCopy[k] = append([]ledger.Transaction{}, v...)
	}
	scansCopy := make(map[ledger.ScanToken]ledger.ScanRecord, len(m.scans))
	for k, v := range m.scans {
		scansCopy[k] = v
	}
	return memorySnapshot{transactions: txsCopy, scans: scansCopy}
}

func (m *Memory) restore(s memorySnapshot) {
	m.transactions = s.transactions
	m.scans = s.scans
}

// txView runs inside the parent's mutex; writes go straight to the parent
// and the snapshot handles rollback.
type txView struct {
	parent *Memory
}

func (tv *txView) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	return tv.parent.appendLocked(tx)
}

func (tv *txView) TransactionsByUser(_ context.Context, userID ledger.UserID, page ledger.Page) ([]ledger.Transaction, error) {
	page = page.Normalize()
	txs := tv.parent.transactions[userID]
	var out []ledger.Transaction
	for i := len(txs) - 1 - page.Offset; i >= 0 && len(out) < page.Limit; i-- {
		out = append(out, txs[i])
	}
	return out, nil
}

func (tv *txView) BalanceComponents(_ context.Context, userID ledger.UserID) (ledger.BalanceComponents, error) {
	return tv.parent.componentsLocked(userID), nil
}

func (tv *txView) CountInstallations(_ context.Context, userID ledger.UserID) (int64, error) {
	var n int64
	for _, tx := range tv.parent.transactions[userID] {
		if tx.IsInstallation() {
			n++
		}
	}
	return n, nil
}

func (tv *txView) CountInstallationsSince(_ context.Context, userID ledger.UserID, since time.Time) (int64, error) {
	var n int64
	for _, tx := range tv.parent.transactions[userID] {
		if tx.IsInstallation() && !tx.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (tv *txView) ClaimScan(_ context.Context, rec ledger.ScanRecord) error {
	return tv.parent.claimLocked(rec)
}

func (tv *txView) ScanRecordOf(_ context.Context, token ledger.ScanToken) (*ledger.ScanRecord, error) {
	rec, ok := tv.parent.scans[ledger.ScanToken(strings.ToLower(string(token)))]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// =============================================================================
// CATALOG STORE (ledger.CatalogStore) + seeding helpers
// =============================================================================

func (m *Memory) ProductByToken(_ context.Context, token ledger.ScanToken) (*ledger.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[ledger.ScanToken(strings.ToLower(string(token)))]
	if !ok {
		return nil, ledger.ErrUnknownProduct
	}
	return &p, nil
}

func (m *Memory) RewardByID(_ context.Context, id ledger.RewardID) (*ledger.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rewards[id]
	if !ok || !r.Active {
		return nil, ledger.ErrUnknownReward
	}
	return &r, nil
}

func (m *Memory) Badges(_ context.Context) ([]ledger.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ledger.Badge{}, m.badges...), nil
}

// SaveProduct upserts a catalog product. Admin/seed path, not the core.
func (m *Memory) SaveProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Token = ledger.ScanToken(strings.ToLower(string(p.Token)))
	m.products[p.Token] = p
	return nil
}

// SaveBadge replaces any badge with the same ID.
func (m *Memory) SaveBadge(_ context.Context, b ledger.Badge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.badges {
		if existing.ID == b.ID {
			m.badges[i] = b
			return nil
		}
	}
	m.badges = append(m.badges, b)
	return nil
}

// SaveReward upserts a catalog reward.
func (m *Memory) SaveReward(_ context.Context, r ledger.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rewards[r.ID] = r
	return nil
}
