package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"critico/internal/models"
)

// FeedSender is the hub surface the notifier needs.
type FeedSender interface {
	SendFeedEvent(userID int, event models.FeedEvent)
}

// UnreadCounter recomputes a user's global unread badge.
type UnreadCounter interface {
	UnreadTotal(ctx context.Context, userID int) (int, error)
}

// DefaultDebounce is the window during which repeated read-flag updates for
// one user collapse into a single badge push.
const DefaultDebounce = 750 * time.Millisecond

// Notifier feeds per-user conversation-list events. New messages are pushed
// immediately; read-receipt bursts are coalesced with a per-user debounce
// timer that restarts on every new event.
type Notifier struct {
	sender  FeedSender
	counter UnreadCounter
	delay   time.Duration

	mu     sync.Mutex
	timers map[int]*time.Timer
	closed bool
}

// NewNotifier constructs a Notifier.
func NewNotifier(sender FeedSender, counter UnreadCounter, delay time.Duration) *Notifier {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Notifier{
		sender:  sender,
		counter: counter,
		delay:   delay,
		timers:  make(map[int]*time.Timer),
	}
}

// NotifyMessage pushes a new-message event to the receiver's feed right
// away, together with the recomputed badge.
func (n *Notifier) NotifyMessage(ctx context.Context, userID int, event models.FeedEvent) {
	total, err := n.counter.UnreadTotal(ctx, userID)
	if err != nil {
		log.Printf("unread recompute failed for user %d: %v", userID, err)
	} else {
		event.UnreadTotal = total
	}
	n.sender.SendFeedEvent(userID, event)
}

// NotifyRead schedules a debounced badge push for the user. Calling it again
// within the window restarts the timer so a burst of read receipts produces
// one push.
func (n *Notifier) NotifyRead(userID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	if timer, ok := n.timers[userID]; ok {
		timer.Stop()
	}
	n.timers[userID] = time.AfterFunc(n.delay, func() {
		n.mu.Lock()
		delete(n.timers, userID)
		closed := n.closed
		n.mu.Unlock()
		if closed {
			return
		}

		total, err := n.counter.UnreadTotal(context.Background(), userID)
		if err != nil {
			log.Printf("unread recompute failed for user %d: %v", userID, err)
			return
		}
		n.sender.SendFeedEvent(userID, models.FeedEvent{Type: "badge", UnreadTotal: total})
	})
}

// Close cancels all pending timers. No pushes fire after Close returns.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for userID, timer := range n.timers {
		timer.Stop()
		delete(n.timers, userID)
	}
}
