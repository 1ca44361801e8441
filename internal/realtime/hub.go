// Package realtime fans committed row changes out to scoped subscribers.
package realtime

import (
	"errors"
	"fmt"
	"sync"

	"giftcircle/internal/store"
	"giftcircle/pkg/logger"
)

var ErrScopeNotAllowed = errors.New("subscription scope not allowed")

// Scope selects the rows of Table whose Column equals Value, e.g. the votes
// of one proposal.
type Scope struct {
	Table  string
	Column string
	Value  string
}

func (s Scope) String() string {
	return fmt.Sprintf("%s.%s=%s", s.Table, s.Column, s.Value)
}

// Handlers receive the affected row. OnDelete gets the removed row. Nil
// handlers are skipped.
type Handlers struct {
	OnInsert func(store.Row)
	OnUpdate func(store.Row)
	OnDelete func(store.Row)
}

// Observer is told about subscription lifecycle and deliveries.
type Observer interface {
	SubscriptionOpened(scope Scope)
	SubscriptionClosed(scope Scope)
	EventDelivered(table string, op store.Op)
}

var allowedScopes = map[string][]string{
	store.TableGroups:         {"id"},
	store.TableFamilies:       {"group_id"},
	store.TableBirthdays:      {"group_id"},
	store.TableIdeas:          {"birthday_id"},
	store.TableParties:        {"group_id", "id"},
	store.TablePartyBirthdays: {"party_id"},
	store.TableProposals:      {"party_id"},
	store.TableProposalItems:  {"proposal_id"},
	store.TableVotes:          {"proposal_id"},
	store.TableGifts:          {"party_id", "id"},
	store.TableParticipants:   {"gift_id"},
	store.TableDirectGifts:    {"id"},
}

// ValidateScope rejects scopes outside the parent-child relations viewers
// are allowed to follow.
func ValidateScope(scope Scope) error {
	if scope.Value == "" {
		return fmt.Errorf("%w: empty value", ErrScopeNotAllowed)
	}
	for _, column := range allowedScopes[scope.Table] {
		if column == scope.Column {
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrScopeNotAllowed, scope.Table, scope.Column)
}

type Hub struct {
	mu       sync.RWMutex
	nextID   uint64
	byTable  map[string]map[uint64]*Subscription
	observer Observer
	log      logger.Logger
}

func NewHub(observer Observer, log logger.Logger) *Hub {
	return &Hub{
		byTable:  make(map[string]map[uint64]*Subscription),
		observer: observer,
		log:      log,
	}
}

type Subscription struct {
	hub      *Hub
	id       uint64
	scope    Scope
	handlers Handlers
	once     sync.Once
}

func (s *Subscription) Scope() Scope {
	return s.scope
}

// Unsubscribe releases the subscription. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

func (h *Hub) Subscribe(scope Scope, handlers Handlers) (*Subscription, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.nextID++
	sub := &Subscription{hub: h, id: h.nextID, scope: scope, handlers: handlers}
	subs, ok := h.byTable[scope.Table]
	if !ok {
		subs = make(map[uint64]*Subscription)
		h.byTable[scope.Table] = subs
	}
	subs[sub.id] = sub
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.SubscriptionOpened(scope)
	}
	h.log.Debug("realtime: subscribed", "scope", scope.String())
	return sub, nil
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if subs, ok := h.byTable[sub.scope.Table]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(h.byTable, sub.scope.Table)
		}
	}
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.SubscriptionClosed(sub.scope)
	}
	h.log.Debug("realtime: unsubscribed", "scope", sub.scope.String())
}

// Active returns the number of live subscriptions.
func (h *Hub) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, subs := range h.byTable {
		total += len(subs)
	}
	return total
}

// Publish delivers change to every subscription whose scope matches the new
// or the old row. Updates that move a row out of a scope are still seen by
// that scope. Handlers run on the caller's goroutine, in publish order.
func (h *Hub) Publish(change store.Change) {
	h.mu.RLock()
	var targets []*Subscription
	for _, sub := range h.byTable[change.Table] {
		if matches(sub.scope, change) {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		var handler func(store.Row)
		switch change.Op {
		case store.OpInsert:
			handler = sub.handlers.OnInsert
		case store.OpUpdate:
			handler = sub.handlers.OnUpdate
		case store.OpDelete:
			handler = sub.handlers.OnDelete
		}
		if handler == nil {
			continue
		}
		handler(change.Current())
		if h.observer != nil {
			h.observer.EventDelivered(change.Table, change.Op)
		}
	}
}

func matches(scope Scope, change store.Change) bool {
	return columnEquals(change.New, scope.Column, scope.Value) || columnEquals(change.Old, scope.Column, scope.Value)
}

func columnEquals(row store.Row, column, value string) bool {
	if row == nil {
		return false
	}
	current, ok := row[column]
	if !ok || current == nil {
		return false
	}
	if s, ok := current.(string); ok {
		return s == value
	}
	return fmt.Sprint(current) == value
}
