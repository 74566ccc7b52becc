package postgres

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Notification channels fed by row-level triggers on the trips and
// bookings tables. Each trigger emits a JSON payload of the shape
// {"table": ..., "op": ..., "id": ..., "trip_id": ...} on every insert,
// update, and delete.
const (
	tripsChannel    = "trips_changes"
	bookingsChannel = "bookings_changes"
)

// ChangeEvent is a row-level change notification. Events are delivered
// at-least-once and carry identifiers only; subscribers must re-fetch
// authoritative state rather than trust the event as the state itself.
type ChangeEvent struct {
	Table  string `json:"table"`
	Op     string `json:"op"`
	ID     string `json:"id"`
	TripID string `json:"trip_id"`
}

// ChangeFeed fans LISTEN/NOTIFY events out to per-entity subscribers.
type ChangeFeed struct {
	listener *pq.Listener

	mu   sync.Mutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	match func(ChangeEvent) bool
	ch    chan ChangeEvent
}

// NewChangeFeed opens a LISTEN connection on the trips and bookings
// channels and starts dispatching. Call Close to tear the connection down.
func NewChangeFeed(dsn string) (*ChangeFeed, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(_ pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("change feed listener: %v", err)
		}
	})

	for _, channel := range []string{tripsChannel, bookingsChannel} {
		if err := listener.Listen(channel); err != nil {
			listener.Close()
			return nil, err
		}
	}

	feed := &ChangeFeed{
		listener: listener,
		subs:     make(map[int]*subscription),
	}
	go feed.dispatch()

	return feed, nil
}

// Subscribe registers interest in events for one trip (matching either the
// trip row itself or bookings on it). The subscription is removed and its
// channel closed when ctx is done, so abandoned watchers do not leak.
func (f *ChangeFeed) Subscribe(ctx context.Context, tripID string) <-chan ChangeEvent {
	sub := &subscription{
		match: func(ev ChangeEvent) bool {
			return ev.ID == tripID || ev.TripID == tripID
		},
		ch: make(chan ChangeEvent, 16),
	}

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = sub
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch
}

// Close tears down the LISTEN connection.
func (f *ChangeFeed) Close() error {
	return f.listener.Close()
}

func (f *ChangeFeed) dispatch() {
	for notification := range f.listener.Notify {
		if notification == nil {
			// Reconnect marker; subscribers re-fetch on the next event.
			continue
		}

		var event ChangeEvent
		if err := json.Unmarshal([]byte(notification.Extra), &event); err != nil {
			log.Printf("change feed: bad payload on %s: %v", notification.Channel, err)
			continue
		}

		f.mu.Lock()
		for _, sub := range f.subs {
			if !sub.match(event) {
				continue
			}
			select {
			case sub.ch <- event:
			default:
				// Slow subscriber: dropping is safe because events are
				// re-fetch signals, not state.
			}
		}
		f.mu.Unlock()
	}
}
