package store

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/pkg/convo"
)

const testDefaultModel = "gpt-5-nano"

func newTestStore() (*ConversationStore, *MemoryObjectStore) {
	objects := NewMemoryObjectStore()
	return NewConversationStore(objects, testDefaultModel), objects
}

func TestConversationStore_LoadAbsentReturnsDefaults(t *testing.T) {
	s, _ := newTestStore()
	model, turns, err := s.Load(context.Background(), "12345")
	require.NoError(t, err)
	require.Equal(t, testDefaultModel, model)
	require.Empty(t, turns)
}

func TestConversationStore_SaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	turns := []convo.Turn{
		convo.UserTurn(convo.Text("hi")),
		convo.AssistantTurn("hello!"),
	}
	require.NoError(t, s.Save(ctx, "42", "claude-sonnet-4-5", turns))

	model, got, err := s.Load(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, "claude-sonnet-4-5", model)
	require.Equal(t, turns, got)
}

func TestConversationStore_DoubleSaveIsIdempotent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	turns := []convo.Turn{convo.UserTurn(convo.Text("only"))}
	require.NoError(t, s.Save(ctx, "42", "m1", turns))
	require.NoError(t, s.Save(ctx, "42", "m1", turns))

	model, got, err := s.Load(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, "m1", model)
	require.Equal(t, turns, got)
}

func TestConversationStore_LegacyBareArrayLoads(t *testing.T) {
	s, objects := newTestStore()
	ctx := context.Background()

	legacy := `[{"role":"user","content":"old message"},{"role":"assistant","content":"old reply"}]`
	require.NoError(t, objects.Upload(ctx, "7.json", []byte(legacy), "application/json"))

	model, turns, err := s.Load(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, testDefaultModel, model)
	require.Len(t, turns, 2)
	require.Equal(t, "old message", turns[0].Content.Text)
	require.Equal(t, convo.RoleAssistant, turns[1].Role)
}

func TestConversationStore_MalformedObjectIsStoreError(t *testing.T) {
	s, objects := newTestStore()
	ctx := context.Background()
	require.NoError(t, objects.Upload(ctx, "9.json", []byte(`{"statusCode":400}`), "application/json"))

	_, _, err := s.Load(ctx, "9")
	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "load", serr.Op)
}

func TestConversationStore_DownloadFailureIsStoreError(t *testing.T) {
	s, objects := newTestStore()
	objects.FailDownload = errors.New("backend down")

	_, _, err := s.Load(context.Background(), "1")
	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.ErrorContains(t, err, "backend down")
}

func TestConversationStore_SaveFailureIsStoreError(t *testing.T) {
	s, objects := newTestStore()
	objects.FailUpload = errors.New("no space")

	err := s.Save(context.Background(), "1", "m", nil)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "save", serr.Op)
}

func TestConversationStore_ResetKeepsModel(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "3", "grok-4", []convo.Turn{convo.UserTurn(convo.Text("x"))}))
	require.NoError(t, s.Reset(ctx, "3"))

	model, turns, err := s.Load(ctx, "3")
	require.NoError(t, err)
	require.Equal(t, "grok-4", model)
	require.Empty(t, turns)
}

func TestConversationStore_LastModified(t *testing.T) {
	s, objects := newTestStore()
	ctx := context.Background()

	require.True(t, s.LastModified(ctx, "nope").IsZero())

	require.NoError(t, s.Save(ctx, "5", "m", nil))
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	objects.SetUpdated("5.json", ts)
	require.Equal(t, ts, s.LastModified(ctx, "5"))

	ok, err := s.Exists(ctx, "5")
	require.NoError(t, err)
	require.True(t, ok)
}
