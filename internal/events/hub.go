// Package events fans transaction changes out to in-process watchers.
package events

import (
	"context"
	"sync"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"go.uber.org/zap"
)

// Subscription receives snapshots of one transaction. The channel holds only the
// most recent snapshot; a slow reader skips intermediate values but never loses
// the latest one. Snapshots older than one already handed over are dropped.
type Subscription struct {
	id     string
	ch     chan model.Transaction
	hub    *Hub
	sendMu sync.Mutex
	newest *model.Transaction
	closed sync.Once
}

func (s *Subscription) Updates() <-chan model.Transaction {
	return s.ch
}

func (s *Subscription) Close() {
	s.closed.Do(func() {
		s.hub.unsubscribe(s)
	})
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(transactionID string) *Subscription {
	sub := &Subscription{
		id:  transactionID,
		ch:  make(chan model.Transaction, 1),
		hub: h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[transactionID] == nil {
		h.subs[transactionID] = make(map[*Subscription]struct{})
	}
	h.subs[transactionID][sub] = struct{}{}

	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers := h.subs[sub.id]
	delete(watchers, sub)
	if len(watchers) == 0 {
		delete(h.subs, sub.id)
	}
}

// Publish never blocks. It replaces any snapshot a subscriber has not read yet.
func (h *Hub) Publish(_ context.Context, txn model.Transaction) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	watchers := h.subs[txn.ID]
	for sub := range watchers {
		sub.deliver(txn)
	}

	if len(watchers) > 0 {
		h.logger.Debug("Transaction update delivered",
			zap.String("transaction_id", txn.ID),
			zap.String("status", string(txn.Status)),
			zap.Int("watchers", len(watchers)))
	}
}

func (h *Hub) Subscribers(transactionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[transactionID])
}

func (s *Subscription) deliver(txn model.Transaction) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.newest != nil && stale(txn, *s.newest) {
		return
	}
	s.newest = &txn

	select {
	case <-s.ch:
	default:
	}
	s.ch <- txn
}

// stale reports whether txn is older than seen. Broker echoes can arrive late,
// and a terminal state is never followed by another status.
func stale(txn, seen model.Transaction) bool {
	if seen.Status.IsTerminal() && !txn.Status.IsTerminal() {
		return true
	}
	return txn.UpdatedAt.Before(seen.UpdatedAt)
}
