// Package router orchestrates one message turn: load the conversation,
// pick the provider family that owns the selected model, invoke it, and
// persist the grown history.
package router

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/chatrelay/chatrelay/pkg/convo"
	"github.com/chatrelay/chatrelay/pkg/providers"
	"github.com/chatrelay/chatrelay/pkg/store"
)

// Family binds a provider adapter to the allow-list of chat models it
// serves. The four families' allow-lists are disjoint; the first family
// whose list contains the resolved model wins.
type Family struct {
	Name    string
	Adapter providers.Adapter
	Models  []string
}

func (f Family) owns(model string) bool {
	for _, m := range f.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Router routes messages for all users. It holds no per-conversation
// state; every operation is a full load-modify-save cycle against the
// conversation store, and overlapping requests for one key race with
// last-write-wins semantics.
type Router struct {
	store    *store.ConversationStore
	families []Family
}

func New(cs *store.ConversationStore, families []Family) (*Router, error) {
	if cs == nil {
		return nil, errors.New("router: conversation store is nil")
	}
	if len(families) == 0 {
		return nil, errors.New("router: no provider families configured")
	}
	return &Router{store: cs, families: families}, nil
}

// AllowedModels returns every chat model across all families, in family
// registration order.
func (r *Router) AllowedModels() []string {
	var all []string
	for _, f := range r.families {
		all = append(all, f.Models...)
	}
	return all
}

func (r *Router) familyFor(model string) (Family, bool) {
	for _, f := range r.families {
		if f.owns(model) {
			return f, true
		}
	}
	return Family{}, false
}

// Ask routes a plain text message for key and returns the raw assistant
// reply. On success the user and assistant turns are appended and saved; a
// provider failure leaves the stored history untouched.
func (r *Router) Ask(ctx context.Context, key, text string) (string, error) {
	return r.ask(ctx, key, convo.Text(text))
}

// AskWithImage routes a multimodal message. Adapters whose selected model
// cannot accept images return a typed modality error and nothing is
// persisted.
func (r *Router) AskWithImage(ctx context.Context, key, caption string, image []byte, mime string) (string, error) {
	return r.ask(ctx, key, convo.Content{Text: caption, Image: image, ImageMIME: mime})
}

func (r *Router) ask(ctx context.Context, key string, content convo.Content) (string, error) {
	model, turns, err := r.store.Load(ctx, key)
	if err != nil {
		return "", err
	}
	family, ok := r.familyFor(model)
	if !ok {
		return "", &ValidationError{Reason: ReasonModelUnrouted, Model: model, Allowed: r.AllowedModels()}
	}

	started := time.Now()
	reply, err := family.Adapter.Send(ctx, turns, content, model)
	if err != nil {
		return "", err
	}
	log.Debug().
		Str("key", key).
		Str("family", family.Name).
		Str("model", model).
		Dur("took", time.Since(started)).
		Int("history_turns", len(turns)).
		Msg("provider reply received")

	turns = append(turns, convo.UserTurn(content), convo.AssistantTurn(reply))
	if err := r.store.Save(ctx, key, model, turns); err != nil {
		log.Error().Err(err).Str("key", key).Msg("conversation save failed after reply")
		return "", err
	}
	return reply, nil
}

// SetModel validates the requested model against the combined allow-list
// and persists it with the existing history. The rejection error carries
// the allow-list so the caller can show it to the user.
func (r *Router) SetModel(ctx context.Context, key, model string) error {
	model = strings.TrimSpace(model)
	if _, ok := r.familyFor(model); !ok {
		return &ValidationError{Reason: ReasonModelNotAllowed, Model: model, Allowed: r.AllowedModels()}
	}
	_, turns, err := r.store.Load(ctx, key)
	if err != nil {
		return err
	}
	return r.store.Save(ctx, key, model, turns)
}

// Model returns the conversation's selected model, or the default for new
// keys.
func (r *Router) Model(ctx context.Context, key string) (string, error) {
	model, _, err := r.store.Load(ctx, key)
	return model, err
}

// Reset empties the conversation history for key, preserving the model.
func (r *Router) Reset(ctx context.Context, key string) error {
	return r.store.Reset(ctx, key)
}

// GenerateImage renders prompt with the named image model. The image model
// sets are fixed per family and separate from the chat allow-lists.
func (r *Router) GenerateImage(ctx context.Context, model, prompt string) (providers.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return providers.Image{}, &ValidationError{Reason: ReasonEmptyPrompt}
	}
	for _, f := range r.families {
		gen, ok := f.Adapter.(providers.ImageGenerator)
		if !ok {
			continue
		}
		for _, m := range gen.ImageModels() {
			if m == model {
				return gen.GenerateImage(ctx, model, prompt)
			}
		}
	}
	return providers.Image{}, &ValidationError{Reason: ReasonImageModelUnknown, Model: model}
}
