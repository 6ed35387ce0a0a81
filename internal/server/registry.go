package server

import (
	"errors"
	"log/slog"

	"github.com/quiznight/livequiz/internal/quiz"
)

// ConnClass is the role a connection registered as.
type ConnClass string

const (
	ClassDisplay ConnClass = "display"
	ClassAdmin   ConnClass = "admin"
	ClassPlayer  ConnClass = "player"
)

var errInvalidRegistration = errors.New("player registration requires a playerId")

// Registry tracks live connections per class: the single display slot, the
// admin set and the playerID-keyed player map. It is owned by the hub
// goroutine and must only be touched from there; that single-writer rule is
// what lets it go without a mutex.
type Registry struct {
	logger  *slog.Logger
	display *Client
	admins  map[*Client]struct{}
	players map[string]*Client
	classes map[*Client]ConnClass
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		admins:  make(map[*Client]struct{}),
		players: make(map[string]*Client),
		classes: make(map[*Client]ConnClass),
	}
}

// Register adds a connection under the given class. A new display supersedes
// the previous one, which is told it lost the slot but is not closed. A
// player reconnecting with the same id replaces their old socket mapping.
func (r *Registry) Register(c *Client, class ConnClass, playerID string) error {
	switch class {
	case ClassDisplay:
		if prev := r.display; prev != nil && prev != c {
			prev.deliver(Envelope{
				Event:   "connection_rejected",
				Payload: RejectedPayload{Reason: "another display connected"},
			})
			delete(r.classes, prev)
			r.logger.Info("display superseded", "old", prev.id, "new", c.id)
		}
		r.display = c

	case ClassAdmin:
		r.admins[c] = struct{}{}

	case ClassPlayer:
		if playerID == "" {
			return errInvalidRegistration
		}
		c.playerID = playerID
		r.players[playerID] = c

	default:
		return errInvalidRegistration
	}

	c.class = class
	r.classes[c] = class
	return nil
}

// Unregister removes a connection from whichever class set holds it.
// It reports whether the registry changed at all.
func (r *Registry) Unregister(c *Client) bool {
	class, ok := r.classes[c]
	if !ok {
		return false
	}
	delete(r.classes, c)

	switch class {
	case ClassDisplay:
		if r.display == c {
			r.display = nil
		}
	case ClassAdmin:
		delete(r.admins, c)
	case ClassPlayer:
		// Only clear the mapping if it still points at this socket; a
		// reconnect may already have replaced it.
		if r.players[c.playerID] == c {
			delete(r.players, c.playerID)
		}
	}
	return true
}

func (r *Registry) IsAdmin(c *Client) bool {
	_, ok := r.admins[c]
	return ok
}

func (r *Registry) Stats() quiz.ConnectionStats {
	return quiz.ConnectionStats{
		Total:   len(r.classes),
		Players: len(r.players),
	}
}

// BroadcastAll delivers an event to the display, every admin and every
// player. Delivery is at-most-once per live socket; a connection whose send
// buffer is full is skipped and logged, never waited on.
func (r *Registry) BroadcastAll(msg Envelope) {
	r.SendToDisplay(msg)
	r.BroadcastToAdmins(msg)
	for _, c := range r.players {
		r.send(c, msg)
	}
}

func (r *Registry) BroadcastToAdmins(msg Envelope) {
	for c := range r.admins {
		r.send(c, msg)
	}
}

func (r *Registry) SendToDisplay(msg Envelope) {
	if r.display != nil {
		r.send(r.display, msg)
	}
}

// PushStats recomputes connection stats and pushes them to the admin and
// display connections. Players never receive stats.
func (r *Registry) PushStats() {
	msg := Envelope{Event: "connection_stats", Payload: r.Stats()}
	r.SendToDisplay(msg)
	r.BroadcastToAdmins(msg)
}

func (r *Registry) send(c *Client, msg Envelope) {
	if !c.deliver(msg) {
		r.logger.Warn("dropping event for slow connection",
			"connection_id", c.id, "class", c.class, "event", msg.Event)
	}
}
