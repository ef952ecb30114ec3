package providers

import (
	"context"
	"encoding/base64"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chatrelay/chatrelay/pkg/convo"
)

const familyAnthropic = "anthropic"

// replyMaxTokens is the fixed output ceiling on the anthropic text path.
const replyMaxTokens = 8192

// AnthropicAdapter passes turns through nearly verbatim as a flat
// role/content message list with a fixed max-output-token ceiling.
type AnthropicAdapter struct {
	client anthropic.Client
}

var _ Adapter = &AnthropicAdapter{}

func NewAnthropicAdapter(apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

func (a *AnthropicAdapter) Family() string { return familyAnthropic }

func (a *AnthropicAdapter) Send(ctx context.Context, turns []convo.Turn, content convo.Content, model string) (string, error) {
	maxTokens := int64(replyMaxTokens)
	if content.HasImage() {
		maxTokens = imageReplyMaxTokens
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  buildAnthropicMessages(turns, content),
	})
	if err != nil {
		return "", transportErr(familyAnthropic, model, err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", malformedErr(familyAnthropic, model)
}

func buildAnthropicMessages(turns []convo.Turn, content convo.Content) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(turns)+1)
	for _, t := range turns {
		msgs = append(msgs, anthropicMessage(t.Role, t.Content))
	}
	return append(msgs, anthropicMessage(convo.RoleUser, content))
}

func anthropicMessage(role convo.Role, c convo.Content) anthropic.MessageParam {
	var blocks []anthropic.ContentBlockParamUnion
	if c.HasImage() {
		mime := c.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(c.Image)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(c.Text))
	if role == convo.RoleAssistant {
		return anthropic.NewAssistantMessage(blocks...)
	}
	return anthropic.NewUserMessage(blocks...)
}
