package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNoJSON        = errors.New("no JSON content found in response")
	ErrMalformedJSON = errors.New("response JSON does not parse")
	ErrMissingFields = errors.New("analysis missing required fields")
)

var fencedJSON = regexp.MustCompile("```json\n([\\s\\S]*?)\n```")

// Analysis is the structured synthesis the model returns. Summary and
// KeyPoints are mandatory; everything else depends on the schema the
// complexity level asked for.
type Analysis struct {
	Summary         string            `json:"summary"`
	KeyPoints       []string          `json:"keyPoints"`
	Analysis        map[string]string `json:"analysis,omitempty"`
	Context         *Context          `json:"context,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

// Context carries the background block of medium and deep analyses.
type Context struct {
	Background      string   `json:"background,omitempty"`
	RelatedTopics   []string `json:"relatedTopics,omitempty"`
	RelatedConcepts []string `json:"relatedConcepts,omitempty"`
	OpenQuestions   []string `json:"openQuestions,omitempty"`
	CurrentTrends   string   `json:"currentTrends,omitempty"`
	Challenges      []string `json:"challenges,omitempty"`
	Misconceptions  []string `json:"misconceptions"`
}

// ExtractJSON pulls the JSON payload out of a model reply. Fenced
// ```json blocks win; otherwise the outermost brace span is taken.
// Models wrap or preface their JSON often enough that strict parsing
// of the whole reply is a losing game.
func ExtractJSON(raw string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return strings.TrimSpace(raw[start : end+1]), nil
}

// Parse extracts and validates an Analysis from a raw model reply.
func Parse(raw string) (*Analysis, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var a Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if strings.TrimSpace(a.Summary) == "" || len(a.KeyPoints) == 0 {
		return nil, fmt.Errorf("%w: summary and keyPoints are required", ErrMissingFields)
	}
	return &a, nil
}
