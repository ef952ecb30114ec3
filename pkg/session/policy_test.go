package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/pkg/store"
)

func newTestPolicy(t *testing.T) (*Policy, *store.ConversationStore, *store.MemoryObjectStore, *time.Time) {
	t.Helper()
	objects := store.NewMemoryObjectStore()
	cs := store.NewConversationStore(objects, "gpt-5-nano")
	p := NewPolicy(cs, DefaultStaleAfter)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	return p, cs, objects, &now
}

func TestShouldPrompt_NoConversation(t *testing.T) {
	p, _, _, _ := newTestPolicy(t)
	require.False(t, p.ShouldPrompt(context.Background(), "nobody"))
}

func TestShouldPrompt_FreshConversation(t *testing.T) {
	p, cs, objects, now := newTestPolicy(t)
	ctx := context.Background()
	require.NoError(t, cs.Save(ctx, "u", "m", nil))
	objects.SetUpdated("u.json", now.Add(-10*time.Minute))
	require.False(t, p.ShouldPrompt(ctx, "u"))
}

func TestShouldPrompt_StaleConversation(t *testing.T) {
	p, cs, objects, now := newTestPolicy(t)
	ctx := context.Background()
	require.NoError(t, cs.Save(ctx, "u", "m", nil))
	objects.SetUpdated("u.json", now.Add(-7200*time.Second))
	require.True(t, p.ShouldPrompt(ctx, "u"))
}

func TestShouldPrompt_ExactThresholdIsNotStale(t *testing.T) {
	p, cs, objects, now := newTestPolicy(t)
	ctx := context.Background()
	require.NoError(t, cs.Save(ctx, "u", "m", nil))

	objects.SetUpdated("u.json", now.Add(-DefaultStaleAfter))
	require.False(t, p.ShouldPrompt(ctx, "u"), "exactly 3600s idle must not prompt")

	objects.SetUpdated("u.json", now.Add(-DefaultStaleAfter-time.Second))
	require.True(t, p.ShouldPrompt(ctx, "u"))
}

func TestStashAndTakePending(t *testing.T) {
	p, _, _, _ := newTestPolicy(t)

	_, ok := p.TakePending("u")
	require.False(t, ok)

	p.Stash("u", "first")
	p.Stash("u", "second")
	text, ok := p.TakePending("u")
	require.True(t, ok)
	require.Equal(t, "second", text, "later message replaces the stash")

	_, ok = p.TakePending("u")
	require.False(t, ok, "stash is consumed once")
}
