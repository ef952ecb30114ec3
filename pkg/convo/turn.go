package convo

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Role tags one side of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Content is the provider-agnostic payload of a turn: plain text, or text
// plus an attached image for multimodal turns.
type Content struct {
	Text string
	// Image holds raw image bytes for multimodal turns. Providers that
	// need base64 or data URLs encode it themselves.
	Image []byte
	// ImageMIME is the media type of Image, "image/jpeg" when empty.
	ImageMIME string
}

// HasImage reports whether the content carries an image attachment.
func (c Content) HasImage() bool { return len(c.Image) > 0 }

// Text returns a text-only content.
func Text(s string) Content { return Content{Text: s} }

// Turn is one message in a conversation. The stored wire shape is
// {"role": ..., "content": ...} where content is a bare string for plain
// text turns and an object for multimodal ones.
type Turn struct {
	Role    Role
	Content Content
}

// UserTurn builds a user turn from content.
func UserTurn(c Content) Turn { return Turn{Role: RoleUser, Content: c} }

// AssistantTurn builds a plain-text assistant turn.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Content: Text(text)}
}

type turnWire struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentWire struct {
	Text      string `json:"text"`
	Image     []byte `json:"image,omitempty"`
	ImageMIME string `json:"image_mime,omitempty"`
}

// MarshalJSON keeps plain text turns stored as a bare content string so the
// objects stay readable by earlier deployments of the gateway.
func (t Turn) MarshalJSON() ([]byte, error) {
	var content any
	if t.Content.HasImage() {
		content = contentWire{
			Text:      t.Content.Text,
			Image:     t.Content.Image,
			ImageMIME: t.Content.ImageMIME,
		}
	} else {
		content = t.Content.Text
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, errors.Wrap(err, "marshal turn content")
	}
	return json.Marshal(turnWire{Role: t.Role, Content: raw})
}

// UnmarshalJSON accepts the three content shapes found in stored
// conversations: a bare string, a {text, image} object, and provider-shaped
// part lists written by earlier versions (arrays of objects carrying "text"
// fields). Part lists collapse to their concatenated text.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var w turnWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(err, "unmarshal turn")
	}
	t.Role = w.Role
	t.Content = decodeContent(w.Content)
	return nil
}

func decodeContent(raw json.RawMessage) Content {
	if len(raw) == 0 {
		return Content{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Content{Text: s}
	}
	var obj contentWire
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.Text != "" || len(obj.Image) > 0) {
		return Content{Text: obj.Text, Image: obj.Image, ImageMIME: obj.ImageMIME}
	}
	var parts []map[string]any
	if err := json.Unmarshal(raw, &parts); err == nil {
		text := ""
		for _, p := range parts {
			if v, ok := p["text"].(string); ok {
				text += v
			}
		}
		return Content{Text: text}
	}
	return Content{}
}
