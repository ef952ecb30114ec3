package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscape_ReservedCharacters(t *testing.T) {
	require.Equal(t, `a\.b\!c`, Escape("a.b!c"))
	require.Equal(t, `\_\*\[\]\(\)\~`+"\\`"+`\>\#\+\-\=\|\{\}\.\!`, Escape("_*[]()~`>#+-=|{}.!"))
	require.Equal(t, "plain text", Escape("plain text"))
}

func TestSplit_ShortMessageSingleSegment(t *testing.T) {
	segs := Split("hello world", 4096)
	require.Len(t, segs, 1)
	require.Equal(t, "hello world", segs[0])
}

func TestSplit_EscapesOutsideFenceOnly(t *testing.T) {
	msg := "a.b\n```\nx.y\n```\nc!d"
	segs := Split(msg, 4096)
	require.Len(t, segs, 1)
	lines := strings.Split(segs[0], "\n")
	require.Equal(t, []string{`a\.b`, "```", "x.y", "```", `c\!d`}, lines)
}

func TestSplit_SegmentLengthBound(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("line with some text in it\n")
	}
	for _, maxLen := range []int{64, 100, 512, 4096} {
		for _, seg := range Split(sb.String(), maxLen) {
			require.LessOrEqual(t, len(seg), maxLen)
		}
	}
}

func TestSplit_FenceBalancedInEverySegment(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("intro\n```\n")
	for i := 0; i < 100; i++ {
		sb.WriteString("code line number xyz\n")
	}
	sb.WriteString("```\noutro\n")

	segs := Split(sb.String(), 128)
	require.Greater(t, len(segs), 1)
	for _, seg := range segs {
		require.LessOrEqual(t, len(seg), 128)
		count := strings.Count(seg, "```")
		require.Zero(t, count%2, "segment has unbalanced fences:\n%s", seg)
	}
}

func TestSplit_FenceSpanningCutReconstructs(t *testing.T) {
	var code []string
	for i := 0; i < 40; i++ {
		code = append(code, "const value = 1234567890")
	}
	msg := "```\n" + strings.Join(code, "\n") + "\n```"

	segs := Split(msg, 200)
	require.Greater(t, len(segs), 1)

	var got []string
	for _, seg := range segs {
		for _, line := range strings.Split(seg, "\n") {
			if line == "```" {
				continue
			}
			got = append(got, line)
		}
	}
	require.Equal(t, code, got)
}

func TestSplit_FenceWithLanguageTagNormalized(t *testing.T) {
	segs := Split("```go\nfmt.Println(1)\n```", 4096)
	require.Len(t, segs, 1)
	require.Equal(t, "```\nfmt.Println(1)\n```", segs[0])
}

func TestSplit_TildeFenceToggles(t *testing.T) {
	segs := Split("~~~\nraw.text\n~~~", 4096)
	require.Len(t, segs, 1)
	require.Equal(t, "```\nraw.text\n```", segs[0])
}

func TestSplit_UnclosedFenceGetsClosed(t *testing.T) {
	segs := Split("```\ndangling code", 4096)
	require.Len(t, segs, 1)
	require.Equal(t, "```\ndangling code\n```", segs[0])
}

func TestSplit_OverlongSingleLine(t *testing.T) {
	long := strings.Repeat("a", 1000)
	segs := Split(long, 100)
	require.Greater(t, len(segs), 1)
	var joined strings.Builder
	for _, seg := range segs {
		require.LessOrEqual(t, len(seg), 100)
		joined.WriteString(seg)
	}
	require.Equal(t, long, joined.String())
}

func TestSplit_OverlongLineNeverCutsEscapePair(t *testing.T) {
	long := strings.Repeat(".", 500) // escapes to 1000 bytes of `\.`
	for _, seg := range Split(long, 99) {
		require.LessOrEqual(t, len(seg), 99)
		require.False(t, strings.HasSuffix(seg, `\`), "segment ends mid-escape: %q", seg)
	}
}

func TestSplit_EmptyMessage(t *testing.T) {
	require.Empty(t, Split("", 4096))
}
