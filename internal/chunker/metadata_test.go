package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractMetadataCounts(t *testing.T) {
	content := strings.TrimSpace(strings.Repeat("kubernetes deployment strategies matter here. ", 50))
	meta := ExtractMetadata(content)

	require.Equal(t, 250, meta.WordCount)
	require.Equal(t, 2, meta.ReadingTime) // ceil(250/200)
	require.Contains(t, meta.Topics, "kubernetes")
	require.Contains(t, meta.Topics, "deployment")
}

func TestExtractMetadataEmpty(t *testing.T) {
	meta := ExtractMetadata("")
	require.Equal(t, 0, meta.WordCount)
	require.Equal(t, 0, meta.ReadingTime)
	require.Empty(t, meta.Topics)
	require.Empty(t, meta.Summary)
}

func TestTopTopicsFiltering(t *testing.T) {
	// stopwords and short tokens never become topics
	words := strings.Fields("the the the database database cat database indexing indexing api")
	topics := topTopics(words)

	require.Equal(t, []string{"database", "indexing"}, topics)
}

func TestTopTopicsTiebreakAlphabetical(t *testing.T) {
	words := strings.Fields("zebra apple zebra apple")
	require.Equal(t, []string{"apple", "zebra"}, topTopics(words))
}

func TestFirstSummary(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "skips short sentences",
			content: "Too short. This sentence is long enough to act as a summary.",
			want:    "This sentence is long enough to act as a summary.",
		},
		{
			name:    "nothing qualifies",
			content: "Tiny. Also tiny.",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, firstSummary(tt.content))
		})
	}
}

func TestFirstSummaryTruncates(t *testing.T) {
	long := "This opening sentence keeps going and going " + strings.Repeat("and going ", 30) + "until it ends."
	summary := firstSummary(long)
	require.Len(t, summary, maxSummaryChars+3)
	require.True(t, strings.HasSuffix(summary, "..."))
}
