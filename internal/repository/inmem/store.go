// Package inmem keeps every table in process memory. It backs the "memory"
// database driver and the service scenario tests.
package inmem

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/repository"
)

type txMarker struct{}

// txState collects the inverse of every write made inside one WithTx call.
type txState struct {
	store *Store
	undo  []func()
}

// Store serializes all access behind one mutex. WithTx holds that mutex for the
// whole callback and, when the callback fails, replays the inverse of each write
// it made in reverse order.
type Store struct {
	mu sync.Mutex

	transactions  map[string]model.Transaction
	txOrder       []string
	accounts      map[string]model.Account
	notifications map[string]model.Notification
	notifyOrder   []string
	events        []model.TransactionEvent
	nextEventID   int64
	timeouts      map[string]model.ObservationTimeout
}

func NewStore() *Store {
	return &Store{
		transactions:  make(map[string]model.Transaction),
		accounts:      make(map[string]model.Account),
		notifications: make(map[string]model.Notification),
		timeouts:      make(map[string]model.ObservationTimeout),
	}
}

func (s *Store) txState(ctx context.Context) *txState {
	state, ok := ctx.Value(txMarker{}).(*txState)
	if !ok || state.store != s {
		return nil
	}
	return state
}

// lock acquires the store mutex unless ctx already runs inside WithTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.txState(ctx) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// onRollback registers the inverse of a write. Outside WithTx writes are final.
func (s *Store) onRollback(ctx context.Context, undo func()) {
	if state := s.txState(ctx); state != nil {
		state.undo = append(state.undo, undo)
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txState(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := &txState{store: s}
	if err := fn(context.WithValue(ctx, txMarker{}, state)); err != nil {
		for i := len(state.undo) - 1; i >= 0; i-- {
			state.undo[i]()
		}
		return err
	}

	return nil
}

func (s *Store) Transactions() repository.TransactionRepository {
	return &transactionRepo{s: s}
}

func (s *Store) Accounts() repository.AccountRepository {
	return &accountRepo{s: s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{s: s}
}

func (s *Store) TransactionEvents() repository.TransactionEventRepository {
	return &eventRepo{s: s}
}

func (s *Store) ObservationTimeouts() repository.ObservationTimeoutRepository {
	return &timeoutRepo{s: s}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type transactionRepo struct {
	s *Store
}

func (r *transactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	defer r.s.lock(ctx)()

	if _, exists := r.s.transactions[txn.ID]; exists {
		return repository.ErrTransactionExisted
	}

	n := len(r.s.txOrder)
	r.s.transactions[txn.ID] = *txn
	r.s.txOrder = append(r.s.txOrder, txn.ID)
	r.s.onRollback(ctx, func() {
		delete(r.s.transactions, txn.ID)
		r.s.txOrder = r.s.txOrder[:n]
	})
	return nil
}

func (r *transactionRepo) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	defer r.s.lock(ctx)()

	txn, ok := r.s.transactions[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	return &txn, nil
}

func (r *transactionRepo) SettlePending(ctx context.Context, settlement model.Settlement) error {
	defer r.s.lock(ctx)()

	txn, ok := r.s.transactions[settlement.TransactionID]
	if !ok || txn.Status != model.TransactionStatusPending {
		return repository.ErrNoRowsAffected
	}

	prev := txn
	r.s.onRollback(ctx, func() { r.s.transactions[prev.ID] = prev })

	txn.Status = settlement.Status
	txn.UpdatedAt = settlement.SettledAt
	if settlement.Reference != "" {
		txn.Reference = settlement.Reference
	}
	if settlement.Description != "" {
		txn.Description = settlement.Description
	}

	r.s.transactions[txn.ID] = txn
	return nil
}

func (r *transactionRepo) newestFirst(match func(model.Transaction) bool) []model.Transaction {
	result := make([]model.Transaction, 0)
	for i := len(r.s.txOrder) - 1; i >= 0; i-- {
		txn := r.s.transactions[r.s.txOrder[i]]
		if match(txn) {
			result = append(result, txn)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (r *transactionRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	defer r.s.lock(ctx)()

	owned := r.newestFirst(func(txn model.Transaction) bool { return txn.UserID == userID })
	return page(owned, limit, offset), nil
}

func (r *transactionRepo) CountByUserID(ctx context.Context, userID string) (int64, error) {
	defer r.s.lock(ctx)()

	var count int64
	for _, txn := range r.s.transactions {
		if txn.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *transactionRepo) FindPendingByPrefix(ctx context.Context, idPrefix string, limit int) ([]model.Transaction, error) {
	defer r.s.lock(ctx)()

	pending := r.newestFirst(func(txn model.Transaction) bool {
		return txn.Status == model.TransactionStatusPending && strings.HasPrefix(txn.ID, idPrefix)
	})
	slices.Reverse(pending)
	return page(pending, limit, 0), nil
}

type accountRepo struct {
	s *Store
}

func (r *accountRepo) Ensure(ctx context.Context, userID string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.accounts[userID]; ok {
		return nil
	}

	now := time.Now().UTC()
	r.s.accounts[userID] = model.Account{UserID: userID, CreatedAt: now, UpdatedAt: now}
	r.s.onRollback(ctx, func() { delete(r.s.accounts, userID) })
	return nil
}

func (r *accountRepo) GetByUserID(ctx context.Context, userID string) (*model.Account, error) {
	defer r.s.lock(ctx)()

	acc, ok := r.s.accounts[userID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &acc, nil
}

func (r *accountRepo) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	defer r.s.lock(ctx)()

	acc, ok := r.s.accounts[userID]
	if !ok {
		return repository.ErrAccountNotFound
	}

	prev := acc
	r.s.onRollback(ctx, func() { r.s.accounts[userID] = prev })

	acc.Balance += delta
	acc.UpdatedAt = time.Now().UTC()
	r.s.accounts[userID] = acc
	return nil
}

func (r *accountRepo) Debit(ctx context.Context, userID string, amount int64) error {
	defer r.s.lock(ctx)()

	acc, ok := r.s.accounts[userID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if acc.Balance < amount {
		return repository.ErrInsufficientBalance
	}

	prev := acc
	r.s.onRollback(ctx, func() { r.s.accounts[userID] = prev })

	acc.Balance -= amount
	acc.UpdatedAt = time.Now().UTC()
	r.s.accounts[userID] = acc
	return nil
}

type notificationRepo struct {
	s *Store
}

func (r *notificationRepo) Create(ctx context.Context, notification *model.Notification) error {
	defer r.s.lock(ctx)()

	if _, exists := r.s.notifications[notification.ID]; exists {
		return repository.ErrNotificationDuplicate
	}

	n := len(r.s.notifyOrder)
	r.s.notifications[notification.ID] = *notification
	r.s.notifyOrder = append(r.s.notifyOrder, notification.ID)
	r.s.onRollback(ctx, func() {
		delete(r.s.notifications, notification.ID)
		r.s.notifyOrder = r.s.notifyOrder[:n]
	})
	return nil
}

func (r *notificationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	defer r.s.lock(ctx)()

	owned := make([]model.Notification, 0)
	for i := len(r.s.notifyOrder) - 1; i >= 0; i-- {
		n := r.s.notifications[r.s.notifyOrder[i]]
		if n.UserID == userID {
			owned = append(owned, n)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	return page(owned, limit, offset), nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	defer r.s.lock(ctx)()

	var count int64
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id string) error {
	defer r.s.lock(ctx)()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotificationNotFound
	}

	prev := n
	r.s.onRollback(ctx, func() { r.s.notifications[id] = prev })

	n.Read = true
	r.s.notifications[id] = n
	return nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	defer r.s.lock(ctx)()

	var updated int64
	for id, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			id, prev := id, n
			r.s.onRollback(ctx, func() { r.s.notifications[id] = prev })
			n.Read = true
			r.s.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}

type eventRepo struct {
	s *Store
}

func (r *eventRepo) Create(ctx context.Context, event *model.TransactionEvent) error {
	defer r.s.lock(ctx)()

	n, prevID := len(r.s.events), r.s.nextEventID
	r.s.nextEventID++
	event.ID = r.s.nextEventID
	r.s.events = append(r.s.events, *event)
	r.s.onRollback(ctx, func() {
		r.s.events = r.s.events[:n]
		r.s.nextEventID = prevID
	})
	return nil
}

func (r *eventRepo) FindUnpublished(ctx context.Context, limit int) ([]model.TransactionEvent, error) {
	defer r.s.lock(ctx)()

	result := make([]model.TransactionEvent, 0)
	for _, event := range r.s.events {
		if event.Published {
			continue
		}
		result = append(result, event)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *eventRepo) MarkPublished(ctx context.Context, id int64, _ time.Time) error {
	defer r.s.lock(ctx)()

	for i := range r.s.events {
		if r.s.events[i].ID != id {
			continue
		}
		// Relayed rows are released; nothing reads them back.
		prev := r.s.events[i]
		r.s.events = slices.Delete(r.s.events, i, i+1)
		r.s.onRollback(ctx, func() { r.s.events = slices.Insert(r.s.events, i, prev) })
		return nil
	}
	return repository.ErrNoRowsAffected
}

type timeoutRepo struct {
	s *Store
}

func (r *timeoutRepo) Record(ctx context.Context, timeout *model.ObservationTimeout) error {
	defer r.s.lock(ctx)()

	if _, exists := r.s.timeouts[timeout.TransactionID]; !exists {
		r.s.timeouts[timeout.TransactionID] = *timeout
		r.s.onRollback(ctx, func() { delete(r.s.timeouts, timeout.TransactionID) })
	}
	return nil
}

func (r *timeoutRepo) Exists(ctx context.Context, transactionID string) (bool, error) {
	defer r.s.lock(ctx)()

	_, exists := r.s.timeouts[transactionID]
	return exists, nil
}
