package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzerTopics(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	metadata := analyzer.Analyze("Any news about technology or the weather?")
	assert.Equal(t, []string{"technology", "news", "weather"}, metadata.Topics)

	metadata = analyzer.Analyze("TECHNOLOGY in caps still counts")
	assert.Equal(t, []string{"technology"}, metadata.Topics)

	metadata = analyzer.Analyze("nothing interesting here")
	assert.Empty(t, metadata.Topics)
	assert.NotNil(t, metadata.Entities)
}

func TestAnalyzerSentiment(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	metadata := analyzer.Analyze("This is great, I love it!")
	assert.Equal(t, "POSITIVE", metadata.Sentiment.Label)
	assert.Greater(t, metadata.Sentiment.Score, 0.5)

	metadata = analyzer.Analyze("This is terrible and wrong.")
	assert.Equal(t, "NEGATIVE", metadata.Sentiment.Label)

	metadata = analyzer.Analyze("What time is it?")
	assert.Equal(t, "NEUTRAL", metadata.Sentiment.Label)
	assert.Equal(t, 0.5, metadata.Sentiment.Score)
}

func TestMessageMetadataRoundTrip(t *testing.T) {
	analyzer := NewAnalyzer(nil)
	metadata := analyzer.Analyze("good news about finance")

	raw, err := metadata.Encode()
	require.NoError(t, err)

	decoded, err := DecodeMessageMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, metadata.Topics, decoded.Topics)
	assert.Equal(t, metadata.Sentiment, decoded.Sentiment)

	empty, err := DecodeMessageMetadata("")
	require.NoError(t, err)
	assert.Empty(t, empty.Topics)
}
