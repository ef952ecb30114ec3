package convo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTurn_TextRoundTrip(t *testing.T) {
	orig := UserTurn(Text("hello world"))
	b, err := json.Marshal(orig)
	require.NoError(t, err)
	require.JSONEq(t, `{"role":"user","content":"hello world"}`, string(b))

	var back Turn
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, orig, back)
}

func TestTurn_ImageRoundTrip(t *testing.T) {
	orig := UserTurn(Content{Text: "what is this?", Image: []byte{0xff, 0xd8}, ImageMIME: "image/jpeg"})
	b, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Turn
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, orig, back)
	require.True(t, back.Content.HasImage())
}

func TestTurn_LegacyPartListContent(t *testing.T) {
	raw := `{"role":"assistant","content":[{"type":"output_text","text":"part one "},{"type":"output_text","text":"part two"}]}`
	var turn Turn
	require.NoError(t, json.Unmarshal([]byte(raw), &turn))
	require.Equal(t, RoleAssistant, turn.Role)
	require.Equal(t, "part one part two", turn.Content.Text)
	require.False(t, turn.Content.HasImage())
}

func TestTurn_UnknownContentShapeDecodesEmpty(t *testing.T) {
	raw := `{"role":"user","content":42}`
	var turn Turn
	require.NoError(t, json.Unmarshal([]byte(raw), &turn))
	require.Equal(t, "", turn.Content.Text)
}
