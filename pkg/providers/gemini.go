package providers

import (
	"context"

	"google.golang.org/genai"

	"github.com/chatrelay/chatrelay/pkg/convo"
)

const familyGoogle = "google"

// GeminiAdapter splits the turn history from the current message: prior
// turns seed a chat session and the new content goes through a separate
// send call. Image turns bypass the chat session and use a one-shot
// generate call with byte parts.
type GeminiAdapter struct {
	client *genai.Client
}

var (
	_ Adapter        = &GeminiAdapter{}
	_ ImageGenerator = &GeminiAdapter{}
)

func NewGeminiAdapter(ctx context.Context, apiKey string) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: client}, nil
}

func (a *GeminiAdapter) Family() string { return familyGoogle }

func (a *GeminiAdapter) Send(ctx context.Context, turns []convo.Turn, content convo.Content, model string) (string, error) {
	if content.HasImage() {
		return a.sendImage(ctx, content, model)
	}

	chat, err := a.client.Chats.Create(ctx, model, nil, buildGeminiHistory(turns))
	if err != nil {
		return "", transportErr(familyGoogle, model, err)
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: content.Text})
	if err != nil {
		return "", transportErr(familyGoogle, model, err)
	}
	return geminiText(resp, model)
}

func (a *GeminiAdapter) sendImage(ctx context.Context, content convo.Content, model string) (string, error) {
	mime := content.ImageMIME
	if mime == "" {
		mime = "image/jpeg"
	}
	parts := []*genai.Part{
		genai.NewPartFromText(content.Text),
		genai.NewPartFromBytes(content.Image, mime),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := a.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", transportErr(familyGoogle, model, err)
	}
	return geminiText(resp, model)
}

// buildGeminiHistory maps stored turns into chat history entries; assistant
// turns take the "model" role on this family's wire.
func buildGeminiHistory(turns []convo.Turn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := string(genai.RoleUser)
		if t.Role == convo.RoleAssistant {
			role = string(genai.RoleModel)
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Content.Text}},
		})
	}
	return history
}

func geminiText(resp *genai.GenerateContentResponse, model string) (string, error) {
	text := resp.Text()
	if text == "" {
		return "", malformedErr(familyGoogle, model)
	}
	return text, nil
}

func (a *GeminiAdapter) ImageModels() []string {
	return []string{"imagen-4.0-generate-001"}
}

func (a *GeminiAdapter) GenerateImage(ctx context.Context, model, prompt string) (Image, error) {
	resp, err := a.client.Models.GenerateImages(ctx, model, prompt, nil)
	if err != nil {
		return Image{}, transportErr(familyGoogle, model, err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return Image{}, malformedErr(familyGoogle, model)
	}
	return Image{Data: resp.GeneratedImages[0].Image.ImageBytes}, nil
}
