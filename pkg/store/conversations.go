package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/chatrelay/chatrelay/pkg/convo"
)

// ConversationStore keeps one {key}.json object per user key holding the
// selected model and the ordered turn history. There is no locking across
// the load-modify-save cycle: overlapping writers for the same key race and
// the last save wins.
type ConversationStore struct {
	objects      ObjectStore
	defaultModel string
}

type conversationWire struct {
	Model string       `json:"model"`
	Msgs  []convo.Turn `json:"msgs"`
}

func NewConversationStore(objects ObjectStore, defaultModel string) *ConversationStore {
	return &ConversationStore{objects: objects, defaultModel: defaultModel}
}

// DefaultModel returns the model used for conversations that have never
// selected one.
func (s *ConversationStore) DefaultModel() string { return s.defaultModel }

func objectName(key string) string { return key + ".json" }

// Exists reports whether a conversation object is stored for key.
func (s *ConversationStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.objects.Exists(ctx, objectName(key))
	if err != nil {
		return false, storeErr("stat", key, err)
	}
	return ok, nil
}

// LastModified returns the object's last-write time. An absent or
// unreadable object reports the zero time.
func (s *ConversationStore) LastModified(ctx context.Context, key string) time.Time {
	ts, err := s.objects.LastModified(ctx, objectName(key))
	if err != nil {
		if !isNotExist(err) {
			log.Warn().Err(err).Str("key", key).Msg("conversation last-modified lookup failed")
		}
		return time.Time{}
	}
	return ts
}

// Load returns the stored model and turn history for key. An absent object
// yields the default model and an empty history. An object in the legacy
// shape (a bare turn array with no model field) loads under the default
// model, keeping conversations written by earlier deployments readable.
func (s *ConversationStore) Load(ctx context.Context, key string) (string, []convo.Turn, error) {
	data, err := s.objects.Download(ctx, objectName(key))
	if isNotExist(err) {
		return s.defaultModel, nil, nil
	}
	if err != nil {
		return "", nil, storeErr("load", key, err)
	}

	var wire conversationWire
	if err := json.Unmarshal(data, &wire); err == nil && wire.Model != "" {
		return wire.Model, wire.Msgs, nil
	}

	var legacy []convo.Turn
	if err := json.Unmarshal(data, &legacy); err != nil {
		return "", nil, storeErr("load", key, err)
	}
	log.Debug().Str("key", key).Msg("conversation loaded via legacy shape fallback")
	return s.defaultModel, legacy, nil
}

// Save overwrites the stored conversation for key.
func (s *ConversationStore) Save(ctx context.Context, key string, model string, turns []convo.Turn) error {
	if turns == nil {
		turns = []convo.Turn{}
	}
	data, err := json.Marshal(conversationWire{Model: model, Msgs: turns})
	if err != nil {
		return storeErr("encode", key, err)
	}
	if err := s.objects.Upload(ctx, objectName(key), data, "application/json"); err != nil {
		return storeErr("save", key, err)
	}
	return nil
}

// Reset empties the turn history for key while preserving its model.
func (s *ConversationStore) Reset(ctx context.Context, key string) error {
	model, _, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, model, nil)
}

func isNotExist(err error) bool {
	return errors.Is(err, ErrObjectNotExist)
}
