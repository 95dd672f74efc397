package registry

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/device"
)

// Event types pushed to subscribers.
const (
	EventDeviceAdded   = "device_added"
	EventDeviceChanged = "device_changed"
	EventDeviceRemoved = "device_removed"
	// EventResync tells a subscriber that events were dropped on its
	// queue and it should re-list to recover.
	EventResync = "resync"
)

// Event is one registry change. Device carries the full entry snapshot at
// emission time, or nil for a resync.
type Event struct {
	Type      string
	Device    *device.Entry
	Timestamp time.Time
}

type subscriber struct {
	id string
	ch chan Event
	// needResync is set when the queue overflowed; a single coalesced
	// resync event is delivered once space frees up.
	needResync bool
}

// Subscribe returns a channel receiving every registry event. Delivery is
// best-effort: a slow subscriber loses its oldest events first.
func (r *Registry) Subscribe() chan Event {
	sub := &subscriber{
		id: uuid.NewString(),
		ch: make(chan Event, r.EventBuffer),
	}

	r.subsMu.Lock()
	r.subs[sub.id] = sub
	r.subsMu.Unlock()

	log.Debug().Str("subscriber", sub.id).Msg("Event subscriber added")
	return sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (r *Registry) Unsubscribe(ch chan Event) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	for id, sub := range r.subs {
		if sub.ch == ch {
			delete(r.subs, id)
			close(sub.ch)
			log.Debug().Str("subscriber", id).Msg("Event subscriber removed")
			return
		}
	}
}

// publish fans an event out to every subscriber. A full queue drops the
// oldest event, keeping removals likely to arrive, and flags one resync.
func (r *Registry) publish(evt Event) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	for _, sub := range r.subs {
		if sub.needResync {
			select {
			case sub.ch <- Event{Type: EventResync, Timestamp: time.Now()}:
				sub.needResync = false
			default:
			}
		}

		select {
		case sub.ch <- evt:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.needResync = true
			select {
			case sub.ch <- evt:
			default:
			}
			log.Warn().Str("subscriber", sub.id).Msg("Subscriber queue overflowed, dropped oldest event")
		}
	}
}
