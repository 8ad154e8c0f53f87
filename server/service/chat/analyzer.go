// Package chat implements the conversational engine: message analysis,
// context assembly, proactive recommendations and the orchestration
// pipeline that ties them to the LLM.
package chat

import (
	"encoding/json"
	"strings"
)

// topicKeywords is the closed vocabulary tracked as user interests.
var topicKeywords = []string{
	"finance",
	"health",
	"technology",
	"travel",
	"food",
	"education",
	"sports",
	"entertainment",
	"news",
	"weather",
}

var positiveWords = []string{
	"great", "good", "love", "excellent", "happy", "thanks", "thank", "awesome", "wonderful", "perfect",
}

var negativeWords = []string{
	"bad", "hate", "terrible", "awful", "angry", "sad", "problem", "wrong", "broken", "worst",
}

// Sentiment is a coarse polarity label with confidence.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Entity is a recognized span in the message text.
type Entity struct {
	Entity string  `json:"entity"`
	Word   string  `json:"word"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Score  float64 `json:"score"`
}

// MessageMetadata is the analysis result stored alongside each user
// message.
type MessageMetadata struct {
	Sentiment Sentiment `json:"sentiment"`
	Entities  []Entity  `json:"entities"`
	Topics    []string  `json:"topics"`
}

// Encode serializes the metadata for storage.
func (m *MessageMetadata) Encode() (string, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// DecodeMessageMetadata parses stored message metadata. An empty raw
// value yields an empty metadata struct.
func DecodeMessageMetadata(raw string) (*MessageMetadata, error) {
	metadata := &MessageMetadata{Entities: []Entity{}, Topics: []string{}}
	if raw == "" {
		return metadata, nil
	}
	if err := json.Unmarshal([]byte(raw), metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

// EntityRecognizer extracts named entities from text. The default
// deployment ships without one and stores empty entity lists.
type EntityRecognizer interface {
	Recognize(text string) []Entity
}

// Analyzer extracts topics, sentiment and entities from one message.
type Analyzer struct {
	recognizer EntityRecognizer
}

// NewAnalyzer creates an analyzer. recognizer may be nil.
func NewAnalyzer(recognizer EntityRecognizer) *Analyzer {
	return &Analyzer{recognizer: recognizer}
}

// Analyze inspects the message text and returns its metadata.
func (a *Analyzer) Analyze(text string) *MessageMetadata {
	metadata := &MessageMetadata{
		Sentiment: analyzeSentiment(text),
		Entities:  []Entity{},
		Topics:    extractTopics(text),
	}
	if a.recognizer != nil {
		if entities := a.recognizer.Recognize(text); entities != nil {
			metadata.Entities = entities
		}
	}
	return metadata
}

// extractTopics matches the keyword vocabulary case-insensitively,
// preserving vocabulary order.
func extractTopics(text string) []string {
	lower := strings.ToLower(text)
	topics := []string{}
	for _, keyword := range topicKeywords {
		if strings.Contains(lower, keyword) {
			topics = append(topics, keyword)
		}
	}
	return topics
}

func analyzeSentiment(text string) Sentiment {
	words := strings.Fields(strings.ToLower(text))
	var positive, negative int
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'")
		for _, p := range positiveWords {
			if word == p {
				positive++
			}
		}
		for _, n := range negativeWords {
			if word == n {
				negative++
			}
		}
	}

	switch {
	case positive > negative:
		return Sentiment{Label: "POSITIVE", Score: 0.5 + 0.5*float64(positive)/float64(len(words)+1)}
	case negative > positive:
		return Sentiment{Label: "NEGATIVE", Score: 0.5 + 0.5*float64(negative)/float64(len(words)+1)}
	default:
		return Sentiment{Label: "NEUTRAL", Score: 0.5}
	}
}
