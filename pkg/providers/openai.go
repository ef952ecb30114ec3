package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chatrelay/chatrelay/pkg/convo"
)

const familyOpenAI = "openai"

// imageReplyMaxTokens caps multimodal completions, matching the text path's
// provider default being replaced by an explicit bound.
const imageReplyMaxTokens = 2000

// textOnlyOpenAIModels never accept image parts.
var textOnlyOpenAIModels = map[string]struct{}{
	"gpt-3.5-turbo": {},
}

// OpenAIAdapter speaks the OpenAI chat API. The new user content is
// appended to the history and every turn is replayed as typed content
// blocks: user turns as input text/image parts, assistant turns as output
// text parts.
type OpenAIAdapter struct {
	client *openai.Client
}

var (
	_ Adapter           = &OpenAIAdapter{}
	_ ImageGenerator    = &OpenAIAdapter{}
	_ Transcriber       = &OpenAIAdapter{}
	_ SpeechSynthesizer = &OpenAIAdapter{}
)

func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{client: openai.NewClient(apiKey)}
}

func (a *OpenAIAdapter) Family() string { return familyOpenAI }

func (a *OpenAIAdapter) Send(ctx context.Context, turns []convo.Turn, content convo.Content, model string) (string, error) {
	if content.HasImage() {
		if _, textOnly := textOnlyOpenAIModels[model]; textOnly {
			return "", modalityErr(familyOpenAI, model)
		}
	}

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: buildOpenAIMessages(turns, content),
	}
	if content.HasImage() {
		req.MaxTokens = imageReplyMaxTokens
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", transportErr(familyOpenAI, model, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", malformedErr(familyOpenAI, model)
	}
	return resp.Choices[0].Message.Content, nil
}

// buildOpenAIMessages maps the turn history plus the new content into typed
// chat messages. Kept separate from Send so the mapping is testable without
// a network.
func buildOpenAIMessages(turns []convo.Turn, content convo.Content) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	for _, t := range turns {
		msgs = append(msgs, openAIMessage(t.Role, t.Content))
	}
	return append(msgs, openAIMessage(convo.RoleUser, content))
}

func openAIMessage(role convo.Role, c convo.Content) openai.ChatCompletionMessage {
	r := openai.ChatMessageRoleUser
	if role == convo.RoleAssistant {
		r = openai.ChatMessageRoleAssistant
	}
	if !c.HasImage() {
		return openai.ChatCompletionMessage{Role: r, Content: c.Text}
	}
	return openai.ChatCompletionMessage{
		Role: r,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(c),
					Detail: openai.ImageURLDetailAuto,
				},
			},
			{Type: openai.ChatMessagePartTypeText, Text: c.Text},
		},
	}
}

func dataURL(c convo.Content) string {
	mime := c.ImageMIME
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(c.Image))
}

func (a *OpenAIAdapter) ImageModels() []string {
	return []string{"dall-e-2", "dall-e-3"}
}

func (a *OpenAIAdapter) GenerateImage(ctx context.Context, model, prompt string) (Image, error) {
	resp, err := a.client.CreateImage(ctx, openai.ImageRequest{
		Model:          model,
		Prompt:         prompt,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return Image{}, transportErr(familyOpenAI, model, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return Image{}, malformedErr(familyOpenAI, model)
	}
	return Image{URL: resp.Data[0].URL, Caption: resp.Data[0].RevisedPrompt}, nil
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", transportErr(familyOpenAI, string(openai.Whisper1), err)
	}
	return resp.Text, nil
}

func (a *OpenAIAdapter) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := a.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.VoiceNova,
		ResponseFormat: openai.SpeechResponseFormatOpus,
	})
	if err != nil {
		return nil, transportErr(familyOpenAI, string(openai.TTSModel1), err)
	}
	defer func() { _ = resp.Close() }()
	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, transportErr(familyOpenAI, string(openai.TTSModel1), err)
	}
	return data, nil
}
