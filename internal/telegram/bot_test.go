package telegram

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/derixofficial/quacktv-games/internal/game"
)

type routedMessage struct {
	groupID int64
	text    string
}

// fakeGroupRouter records routed group text. A gate registered for a
// group makes its handling block until the test releases it.
type fakeGroupRouter struct {
	mu      sync.Mutex
	handled []routedMessage
	gates   map[int64]chan struct{}
}

func (f *fakeGroupRouter) HandleGroupMessage(ctx context.Context, groupID int64, sender game.Sender, text string) {
	f.mu.Lock()
	gate := f.gates[groupID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	f.handled = append(f.handled, routedMessage{groupID: groupID, text: text})
	f.mu.Unlock()
}

func (f *fakeGroupRouter) texts(groupID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.handled {
		if m.groupID == groupID {
			out = append(out, m.text)
		}
	}
	return out
}

func (f *fakeGroupRouter) has(groupID int64, text string) bool {
	for _, got := range f.texts(groupID) {
		if got == text {
			return true
		}
	}
	return false
}

func groupUpdate(chatID, userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Test"},
		Chat: &tgbotapi.Chat{ID: chatID, Type: "supergroup"},
		Text: text,
	}}
}

func TestSlowGroupDoesNotDelayOtherGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gate := make(chan struct{})
	r := &fakeGroupRouter{gates: map[int64]chan struct{}{1: gate}}
	b := NewBot(nil, nil, r)

	// Group 1's handling is stuck behind the gate. Group 2's message
	// must still come through.
	b.route(ctx, groupUpdate(1, 7, "lenta"))
	b.route(ctx, groupUpdate(2, 8, "veloce"))

	require.Eventually(t, func() bool { return r.has(2, "veloce") },
		time.Second, 5*time.Millisecond)
	require.False(t, r.has(1, "lenta"))

	close(gate)
	require.Eventually(t, func() bool { return r.has(1, "lenta") },
		time.Second, 5*time.Millisecond)
}

func TestGroupMessagesKeepArrivalOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeGroupRouter{}
	b := NewBot(nil, nil, r)

	const n = 25
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("parola%02d", i)
		want = append(want, text)
		b.route(ctx, groupUpdate(5, 7, text))
	}

	require.Eventually(t, func() bool { return len(r.texts(5)) == n },
		time.Second, 5*time.Millisecond)
	require.Equal(t, want, r.texts(5))
}

func TestInterleavedGroupsEachKeepOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeGroupRouter{}
	b := NewBot(nil, nil, r)

	for i := 0; i < 10; i++ {
		b.route(ctx, groupUpdate(1, 7, fmt.Sprintf("a%d", i)))
		b.route(ctx, groupUpdate(2, 8, fmt.Sprintf("b%d", i)))
	}

	require.Eventually(t, func() bool {
		return len(r.texts(1)) == 10 && len(r.texts(2)) == 10
	}, time.Second, 5*time.Millisecond)

	for i, got := range r.texts(1) {
		require.Equal(t, fmt.Sprintf("a%d", i), got)
	}
	for i, got := range r.texts(2) {
		require.Equal(t, fmt.Sprintf("b%d", i), got)
	}
}
