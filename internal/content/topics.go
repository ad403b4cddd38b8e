package content

import (
	"sort"
	"strings"
)

// Topic is a static, hand-authored grouping of tag names into a display
// category. Topics are not part of the persisted data model; they only shape
// the tag index page. A tag may belong to zero or more topics; tags matched
// by no topic fall into FallbackTopic.
type Topic struct {
	Name string
	Tags []string
}

// FallbackTopic collects every tag no curated topic claims.
const FallbackTopic = "Everything Else"

// topics is the curated topic table. Matching is case-insensitive.
var topics = []Topic{
	{Name: "Languages & Runtimes", Tags: []string{"go", "rust", "python", "javascript", "typescript", "wasm"}},
	{Name: "Systems & Infrastructure", Tags: []string{"linux", "networking", "docker", "kubernetes", "infrastructure", "databases"}},
	{Name: "Web & APIs", Tags: []string{"web", "http", "html", "css", "api", "rest"}},
	{Name: "Craft & Practice", Tags: []string{"testing", "refactoring", "design", "architecture", "performance", "caching"}},
	{Name: "Tools & Workflow", Tags: []string{"git", "editors", "cli", "automation", "productivity"}},
	{Name: "Writing & Community", Tags: []string{"writing", "blogging", "opensource", "community", "meta"}},
}

// Topics returns the curated topic table, fallback excluded.
func Topics() []Topic {
	return topics
}

// TopicsForTag returns every topic claiming the tag, or the fallback topic
// name alone when none do.
func TopicsForTag(tag string) []string {
	var matched []string
	for _, topic := range topics {
		for _, t := range topic.Tags {
			if strings.EqualFold(t, tag) {
				matched = append(matched, topic.Name)
				break
			}
		}
	}

	if len(matched) == 0 {
		return []string{FallbackTopic}
	}

	return matched
}

// GroupTagsByTopic buckets tag aggregations under topic names for the tag
// index page. Tags inside each bucket keep their incoming order; buckets are
// ordered as the topic table declares, with the fallback last and only
// present when non-empty.
func GroupTagsByTopic(tags []TagInfo) map[string][]TagInfo {
	grouped := make(map[string][]TagInfo)
	for _, tag := range tags {
		for _, topicName := range TopicsForTag(tag.Name) {
			grouped[topicName] = append(grouped[topicName], tag)
		}
	}

	return grouped
}

// TopicOrder returns topic names in display order for a grouped result.
func TopicOrder(grouped map[string][]TagInfo) []string {
	var order []string
	for _, topic := range topics {
		if len(grouped[topic.Name]) > 0 {
			order = append(order, topic.Name)
		}
	}
	if len(grouped[FallbackTopic]) > 0 {
		order = append(order, FallbackTopic)
	}

	// Any unexpected buckets sort after the known ones
	var extra []string
	known := make(map[string]bool, len(order))
	for _, name := range order {
		known[name] = true
	}
	for name := range grouped {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	return append(order, extra...)
}
