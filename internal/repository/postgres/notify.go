package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"giftcircle/internal/store"
	"giftcircle/pkg/logger"
	"github.com/lib/pq"
)

// ChangeChannel is the NOTIFY channel the row_changes triggers publish on.
const ChangeChannel = "row_changes"

const listenerPingInterval = 90 * time.Second

type notification struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	Old   store.Row `json:"old"`
	New   store.Row `json:"new"`
}

// ChangeListener turns postgres notifications into store changes.
type ChangeListener struct {
	listener *pq.Listener
	log      logger.Logger
}

func NewChangeListener(dsn string, minReconnect, maxReconnect time.Duration, log logger.Logger) *ChangeListener {
	events := func(event pq.ListenerEventType, err error) {
		switch event {
		case pq.ListenerEventConnectionAttemptFailed:
			log.Warn("realtime: listener connection attempt failed", "err", err)
		case pq.ListenerEventDisconnected:
			log.Warn("realtime: listener disconnected", "err", err)
		case pq.ListenerEventReconnected:
			log.Info("realtime: listener reconnected")
		}
	}
	return &ChangeListener{
		listener: pq.NewListener(dsn, minReconnect, maxReconnect, events),
		log:      log,
	}
}

// Run delivers changes until ctx is cancelled. Notifications raised while
// the connection was down are lost; subscribers re-read state on every
// event, so the next change resynchronizes them.
func (l *ChangeListener) Run(ctx context.Context, publish func(store.Change)) error {
	if err := l.listener.Listen(ChangeChannel); err != nil {
		return fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}
	l.log.Info("realtime: listening for row changes", "channel", ChangeChannel)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return l.listener.Close()
		case n := <-l.listener.Notify:
			if n == nil {
				continue
			}
			change, err := decodeNotification(n.Extra)
			if err != nil {
				l.log.InternalError("realtime: decode notification failed", err, "channel", n.Channel)
				continue
			}
			publish(change)
		case <-ticker.C:
			if err := l.listener.Ping(); err != nil {
				l.log.Warn("realtime: listener ping failed", "err", err)
			}
		}
	}
}

func decodeNotification(payload string) (store.Change, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return store.Change{}, err
	}
	op := store.Op(n.Op)
	switch op {
	case store.OpInsert, store.OpUpdate, store.OpDelete:
	default:
		return store.Change{}, fmt.Errorf("unknown op %q", n.Op)
	}
	if n.Table == "" {
		return store.Change{}, fmt.Errorf("missing table")
	}
	return store.Change{Table: n.Table, Op: op, Old: n.Old, New: n.New}, nil
}
