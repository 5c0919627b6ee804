package deepsearch

import (
	"encoding/json"
	"regexp"
	"strings"
)

// thinkRe matches the internal reasoning blocks some models leak into their
// output.
var thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// resultsObject is the structured shape the retrieval pipeline returns when
// it completed fully. Any field may be missing.
type resultsObject struct {
	RagAnswer     string   `json:"rag_answer"`
	SearchSummary string   `json:"search_summary"`
	Sources       []string `json:"sources"`
}

// extractAnswer pulls a displayable answer out of the results payload. The
// pipeline may return a partially-populated object or a bare string, so the
// extraction degrades through an ordered list of fallbacks instead of failing
// on a missing field: synthesized rag answer, then search summary, then the
// raw serialized payload.
func extractAnswer(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj resultsObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.RagAnswer != "" {
			return sanitize(obj.RagAnswer)
		}
		if obj.SearchSummary != "" {
			return sanitize(obj.SearchSummary)
		}
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return sanitize(plain)
	}

	return sanitize(string(raw))
}

// extractSources returns the source references, if the payload carried any.
func extractSources(raw json.RawMessage) []string {
	var obj resultsObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj.Sources
}

// sanitize strips reasoning markers and markdown emphasis from answer text.
func sanitize(s string) string {
	s = thinkRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}
