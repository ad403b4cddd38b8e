package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicsForTag(t *testing.T) {
	tests := []struct {
		tag      string
		expected []string
	}{
		{"go", []string{"Languages & Runtimes"}},
		{"GO", []string{"Languages & Runtimes"}},
		{"Caching", []string{"Craft & Practice"}},
		{"underwater-basket-weaving", []string{FallbackTopic}},
		{"", []string{FallbackTopic}},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.expected, TopicsForTag(tt.tag))
		})
	}
}

func TestGroupTagsByTopic(t *testing.T) {
	tags := []TagInfo{
		{Name: "go", Count: 4},
		{Name: "rust", Count: 2},
		{Name: "caching", Count: 3},
		{Name: "gardening", Count: 1},
	}

	grouped := GroupTagsByTopic(tags)

	langTags := grouped["Languages & Runtimes"]
	assert.Len(t, langTags, 2)
	assert.Equal(t, "go", langTags[0].Name)
	assert.Equal(t, "rust", langTags[1].Name)

	assert.Len(t, grouped["Craft & Practice"], 1)
	assert.Len(t, grouped[FallbackTopic], 1)
	assert.Equal(t, "gardening", grouped[FallbackTopic][0].Name)
}

func TestTopicOrder(t *testing.T) {
	grouped := map[string][]TagInfo{
		"Craft & Practice":      {{Name: "testing"}},
		"Languages & Runtimes":  {{Name: "go"}},
		FallbackTopic:           {{Name: "misc"}},
	}

	order := TopicOrder(grouped)

	// Declared table order first, fallback last
	assert.Equal(t, []string{"Languages & Runtimes", "Craft & Practice", FallbackTopic}, order)
}

func TestTopicOrderSkipsEmptyBuckets(t *testing.T) {
	grouped := map[string][]TagInfo{
		"Web & APIs": {{Name: "http"}},
	}

	order := TopicOrder(grouped)
	assert.Equal(t, []string{"Web & APIs"}, order)
}

func TestTopicTableShape(t *testing.T) {
	all := Topics()
	assert.GreaterOrEqual(t, len(all), 5)
	assert.LessOrEqual(t, len(all), 8)

	for _, topic := range all {
		assert.NotEmpty(t, topic.Name)
		assert.NotEmpty(t, topic.Tags)
	}
}
