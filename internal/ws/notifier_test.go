package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"critico/internal/models"
)

type recordingSender struct {
	mu     sync.Mutex
	events []models.FeedEvent
	users  []int
}

func (s *recordingSender) SendFeedEvent(userID int, event models.FeedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, userID)
	s.events = append(s.events, event)
}

func (s *recordingSender) snapshot() []models.FeedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FeedEvent, len(s.events))
	copy(out, s.events)
	return out
}

type staticCounter struct {
	total int
	err   error
}

func (c *staticCounter) UnreadTotal(context.Context, int) (int, error) {
	return c.total, c.err
}

func TestNotifyMessageSendsImmediately(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, &staticCounter{total: 6}, 50*time.Millisecond)
	defer n.Close()

	msg := models.Message{ID: 3, ChatID: 5}
	n.NotifyMessage(context.Background(), 2, models.FeedEvent{Type: "message", Message: &msg})

	events := sender.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0].Type)
	assert.Equal(t, 6, events[0].UnreadTotal)
}

func TestNotifyMessageSendsEvenIfCountFails(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, &staticCounter{err: assert.AnError}, 50*time.Millisecond)
	defer n.Close()

	n.NotifyMessage(context.Background(), 2, models.FeedEvent{Type: "message"})

	events := sender.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, 0, events[0].UnreadTotal)
}

func TestNotifyReadCoalescesBurst(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, &staticCounter{total: 1}, 30*time.Millisecond)
	defer n.Close()

	for i := 0; i < 5; i++ {
		n.NotifyRead(2)
	}

	require.Eventually(t, func() bool {
		return len(sender.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	// a burst of read receipts produces exactly one badge push
	time.Sleep(60 * time.Millisecond)
	events := sender.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "badge", events[0].Type)
	assert.Equal(t, 1, events[0].UnreadTotal)
}

func TestNotifyReadSeparateUsersGetSeparatePushes(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, &staticCounter{total: 2}, 20*time.Millisecond)
	defer n.Close()

	n.NotifyRead(1)
	n.NotifyRead(2)

	require.Eventually(t, func() bool {
		return len(sender.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.ElementsMatch(t, []int{1, 2}, sender.users)
}

func TestCloseCancelsPendingPushes(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, &staticCounter{total: 1}, 30*time.Millisecond)

	n.NotifyRead(2)
	n.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, sender.snapshot())

	// calls after Close are ignored
	n.NotifyRead(2)
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, sender.snapshot())
}
