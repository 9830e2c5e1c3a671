package discord

import (
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	t.Run("short message stays whole", func(t *testing.T) {
		chunks := splitMessage("hello")
		if len(chunks) != 1 || chunks[0] != "hello" {
			t.Errorf("chunks = %q", chunks)
		}
	})

	t.Run("empty message sends nothing", func(t *testing.T) {
		if chunks := splitMessage(""); len(chunks) != 0 {
			t.Errorf("chunks = %q", chunks)
		}
	})

	t.Run("long message splits under the limit", func(t *testing.T) {
		content := strings.Repeat("a", maxMessageLen*2+100)
		chunks := splitMessage(content)
		if len(chunks) != 3 {
			t.Fatalf("len(chunks) = %d, want 3", len(chunks))
		}
		var rejoined strings.Builder
		for i, chunk := range chunks {
			if len(chunk) > maxMessageLen {
				t.Errorf("chunk %d length %d exceeds limit", i, len(chunk))
			}
			rejoined.WriteString(chunk)
		}
		if rejoined.String() != content {
			t.Error("chunks do not rejoin to the original content")
		}
	})

	t.Run("prefers newline break in second half", func(t *testing.T) {
		first := strings.Repeat("a", maxMessageLen-100)
		content := first + "\n" + strings.Repeat("b", 300)
		chunks := splitMessage(content)
		if len(chunks) != 2 {
			t.Fatalf("len(chunks) = %d, want 2", len(chunks))
		}
		if chunks[0] != first+"\n" {
			t.Errorf("chunk 0 did not break at the newline (len %d)", len(chunks[0]))
		}
	})

	t.Run("ignores newline in first half", func(t *testing.T) {
		content := "x\n" + strings.Repeat("a", maxMessageLen+50)
		chunks := splitMessage(content)
		if len(chunks[0]) != maxMessageLen {
			t.Errorf("chunk 0 length = %d, want hard cut at limit", len(chunks[0]))
		}
	})
}
