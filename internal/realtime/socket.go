package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"giftcircle/internal/store"
	"giftcircle/pkg/logger"
	"github.com/olahol/melody"
)

const (
	scopeKey        = "scope"
	subscriptionKey = "subscription"
)

// Event is what a websocket client receives for each change in its scope.
type Event struct {
	Table string    `json:"table"`
	Op    store.Op  `json:"op"`
	Row   store.Row `json:"row"`
}

// Socket serves one subscription per websocket connection. The subscription
// is acquired on connect and released on disconnect.
type Socket struct {
	hub    *Hub
	melody *melody.Melody
	log    logger.Logger
}

func NewSocket(hub *Hub, log logger.Logger) *Socket {
	m := melody.New()
	m.Config.MaxMessageSize = 4 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	socket := &Socket{hub: hub, melody: m, log: log}
	m.HandleConnect(socket.connect)
	m.HandleDisconnect(socket.disconnect)
	m.HandleError(func(s *melody.Session, err error) {
		scope, _ := s.Get(scopeKey)
		log.Warn("realtime: websocket error", "err", err, "scope", scope)
	})
	return socket
}

// Serve upgrades the request for scope, which must already be validated.
func (s *Socket) Serve(w http.ResponseWriter, r *http.Request, scope Scope) error {
	return s.melody.HandleRequestWithKeys(w, r, map[string]any{scopeKey: scope})
}

func (s *Socket) Close() error {
	return s.melody.Close()
}

func (s *Socket) connect(session *melody.Session) {
	value, ok := session.Get(scopeKey)
	scope, valid := value.(Scope)
	if !ok || !valid {
		_ = session.Close()
		return
	}

	send := func(op store.Op) func(store.Row) {
		return func(row store.Row) {
			payload, err := json.Marshal(Event{Table: scope.Table, Op: op, Row: row})
			if err != nil {
				s.log.InternalError("realtime: encode event failed", err, "scope", scope.String())
				return
			}
			if err := session.Write(payload); err != nil {
				s.log.Debug("realtime: write to closed session", "scope", scope.String(), "err", err)
			}
		}
	}

	sub, err := s.hub.Subscribe(scope, Handlers{
		OnInsert: send(store.OpInsert),
		OnUpdate: send(store.OpUpdate),
		OnDelete: send(store.OpDelete),
	})
	if err != nil {
		s.log.BusinessError("realtime: subscribe failed", err, "scope", scope.String())
		_ = session.Close()
		return
	}
	session.Set(subscriptionKey, sub)
}

func (s *Socket) disconnect(session *melody.Session) {
	value, ok := session.Get(subscriptionKey)
	if !ok {
		return
	}
	if sub, ok := value.(*Subscription); ok {
		sub.Unsubscribe()
	}
}
