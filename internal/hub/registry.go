// Package hub holds the listener connections of one room.
package hub

import (
	"encoding/json"

	"github.com/tomfuertes/murmur/pkg/log"
)

// Registry is the room's connection collection. It is not safe for
// concurrent use: the room coordinator owns it and serializes every
// access through its command loop, which is also what makes the listener
// count exact at any instant.
type Registry struct {
	clients map[string]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Add registers a client.
func (r *Registry) Add(c *Client) {
	r.clients[c.ID] = c
}

// Remove unregisters a client and closes its send channel. Removing an
// unknown ID is a no-op, so disconnect paths can race a slow-client drop
// without double-closing.
func (r *Registry) Remove(id string) bool {
	c, ok := r.clients[id]
	if !ok {
		return false
	}
	delete(r.clients, id)
	c.closeSend()
	return true
}

// Count returns the number of connected listeners.
func (r *Registry) Count() int {
	return len(r.clients)
}

// Broadcast sends a message to every connected listener. Delivery is
// best effort: a client whose buffer is full is dropped from the
// registry so one stuck connection cannot hold up the room.
func (r *Registry) Broadcast(message interface{}) int {
	data, err := json.Marshal(message)
	if err != nil {
		log.L().Error().Err(err).Msg("failed to marshal broadcast message")
		return 0
	}

	delivered := 0
	var dropped []string
	for id, c := range r.clients {
		if c.trySend(data) {
			delivered++
		} else {
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		r.Remove(id)
		log.L().Warn().Str(log.FieldConnID, id).Msg("dropped slow listener")
	}
	return delivered
}

// CloseAll closes every client's send channel, used on shutdown.
func (r *Registry) CloseAll() {
	for id := range r.clients {
		r.Remove(id)
	}
}
