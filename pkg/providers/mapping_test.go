package providers

import (
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/chatrelay/chatrelay/pkg/convo"
)

func history() []convo.Turn {
	return []convo.Turn{
		convo.UserTurn(convo.Text("first question")),
		convo.AssistantTurn("first answer"),
	}
}

func TestBuildOpenAIMessages_AppendsNewContentLast(t *testing.T) {
	msgs := buildOpenAIMessages(history(), convo.Text("second question"))
	require.Len(t, msgs, 3)
	require.Equal(t, openai.ChatMessageRoleUser, msgs[0].Role)
	require.Equal(t, openai.ChatMessageRoleAssistant, msgs[1].Role)
	require.Equal(t, "second question", msgs[2].Content)
}

func TestBuildOpenAIMessages_ImageBecomesTypedParts(t *testing.T) {
	content := convo.Content{Text: "what is this", Image: []byte{1, 2, 3}, ImageMIME: "image/png"}
	msgs := buildOpenAIMessages(nil, content)
	require.Len(t, msgs, 1)
	require.Empty(t, msgs[0].Content)
	require.Len(t, msgs[0].MultiContent, 2)
	require.Equal(t, openai.ChatMessagePartTypeImageURL, msgs[0].MultiContent[0].Type)
	require.True(t, strings.HasPrefix(msgs[0].MultiContent[0].ImageURL.URL, "data:image/png;base64,"))
	require.Equal(t, "what is this", msgs[0].MultiContent[1].Text)
}

func TestBuildAnthropicMessages_FlatRoleContentList(t *testing.T) {
	msgs := buildAnthropicMessages(history(), convo.Text("second question"))
	require.Len(t, msgs, 3)
	require.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	require.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	require.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
}

func TestBuildGeminiHistory_AssistantMapsToModelRole(t *testing.T) {
	hist := buildGeminiHistory(history())
	require.Len(t, hist, 2)
	require.Equal(t, string(genai.RoleUser), hist[0].Role)
	require.Equal(t, string(genai.RoleModel), hist[1].Role)
	require.Equal(t, "first answer", hist[1].Parts[0].Text)
}

func TestBuildXAIMessages_PlainRoleTaggedReplay(t *testing.T) {
	msgs := buildXAIMessages(history(), convo.Text("second question"))
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		require.Empty(t, m.MultiContent)
	}
	require.Equal(t, "first question", msgs[0].Content)
	require.Equal(t, "first answer", msgs[1].Content)
	require.Equal(t, "second question", msgs[2].Content)
}

func TestOpenAISend_TextOnlyModelRejectsImage(t *testing.T) {
	a := NewOpenAIAdapter("test-key")
	_, err := a.Send(t.Context(), nil, convo.Content{Text: "x", Image: []byte{1}}, "gpt-3.5-turbo")
	require.True(t, IsUnsupportedModality(err))
}

func TestProviderError_Kinds(t *testing.T) {
	require.True(t, IsUnsupportedModality(modalityErr("openai", "gpt-3.5-turbo")))
	require.False(t, IsUnsupportedModality(malformedErr("openai", "gpt-5")))
	require.False(t, IsUnsupportedModality(nil))

	err := transportErr("xai", "grok-4", errContext)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindTransport, perr.Kind)
	require.ErrorContains(t, err, "grok-4")
}

var errContext = errorString("connection refused")

type errorString string

func (e errorString) Error() string { return string(e) }
