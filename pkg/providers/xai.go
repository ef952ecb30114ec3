package providers

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chatrelay/chatrelay/pkg/convo"
)

const familyXAI = "xai"

// DefaultXAIBaseURL is xAI's OpenAI-compatible endpoint.
const DefaultXAIBaseURL = "https://api.x.ai/v1"

// XAIAdapter talks to xAI's OpenAI-compatible API. Unlike the openai
// family's typed blocks, turns are replayed as plain role-tagged messages
// in order, followed by the new user content.
type XAIAdapter struct {
	client *openai.Client
}

var (
	_ Adapter        = &XAIAdapter{}
	_ ImageGenerator = &XAIAdapter{}
)

func NewXAIAdapter(apiKey, baseURL string) *XAIAdapter {
	if baseURL == "" {
		baseURL = DefaultXAIBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &XAIAdapter{client: openai.NewClientWithConfig(cfg)}
}

func (a *XAIAdapter) Family() string { return familyXAI }

func (a *XAIAdapter) Send(ctx context.Context, turns []convo.Turn, content convo.Content, model string) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if content.HasImage() {
		// The current image message is sent on its own; grok vision
		// requests reject mixed text-history payloads.
		msgs = []openai.ChatCompletionMessage{openAIMessage(convo.RoleUser, content)}
	} else {
		msgs = buildXAIMessages(turns, content)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	})
	if err != nil {
		return "", transportErr(familyXAI, model, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", malformedErr(familyXAI, model)
	}
	return resp.Choices[0].Message.Content, nil
}

func buildXAIMessages(turns []convo.Turn, content convo.Content) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == convo.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content.Text})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content.Text})
}

func (a *XAIAdapter) ImageModels() []string {
	return []string{"grok-2-image"}
}

func (a *XAIAdapter) GenerateImage(ctx context.Context, model, prompt string) (Image, error) {
	resp, err := a.client.CreateImage(ctx, openai.ImageRequest{
		Model:          model,
		Prompt:         prompt,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return Image{}, transportErr(familyXAI, model, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return Image{}, malformedErr(familyXAI, model)
	}
	return Image{URL: resp.Data[0].URL, Caption: prompt}, nil
}
