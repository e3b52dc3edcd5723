package query

import (
	"regexp"
	"strings"
)

// Level selects prompt shape and output verbosity downstream. It is a
// heuristic depth selector, not a measure of actual difficulty.
type Level string

const (
	LevelSimple Level = "simple"
	LevelMedium Level = "medium"
	LevelDeep   Level = "deep"
)

// Assessment is the deterministic complexity verdict for one query.
type Assessment struct {
	Score    int      `json:"score"`
	Level    Level    `json:"level"`
	Triggers []string `json:"triggers"`
}

type indicator struct {
	name   string
	points int
	re     *regexp.Regexp
}

// Category tiers: high-complexity +3, medium +2, simple-query signals -1.
// Order is fixed so trigger lists are reproducible.
var indicators = []indicator{
	{"academic", 3, regexp.MustCompile(`(?i)\b(research|study|analysis|theory|methodology|hypothesis|dissertation|peer.?review)\b`)},
	{"technical", 3, regexp.MustCompile(`(?i)\b(algorithm|implementation|architecture|framework|optimization|performance)\b`)},
	{"analytical", 3, regexp.MustCompile(`(?i)\b(compare|contrast|evaluate|assess|analyze|critique|examine)\b`)},
	{"controversial", 3, regexp.MustCompile(`(?i)\b(debate|controversy|pros.?cons|advantages.?disadvantages|benefits.?risks)\b`)},
	{"multifaceted", 3, regexp.MustCompile(`(?i)\b(factors|aspects|dimensions|perspectives|implications|considerations)\b`)},
	{"explanatory", 2, regexp.MustCompile(`(?i)\b(how|why|what|explain|understand|clarify)\b`)},
	{"current", 2, regexp.MustCompile(`(?i)\b(latest|recent|current|today|now|2024|2025)\b`)},
	{"factual", -1, regexp.MustCompile(`(?i)\b(when|where|who|define|definition)\b`)},
	{"basic", -1, regexp.MustCompile(`(?i)\b(price|cost|location|address|phone|hours)\b`)},
}

// Score derives a complexity assessment from the query text alone.
// Pure and deterministic: the same string always yields the same result.
func Score(q string) Assessment {
	score := 0
	var triggers []string

	for _, ind := range indicators {
		if ind.re.MatchString(q) {
			score += ind.points
			triggers = append(triggers, ind.name)
		}
	}

	// Longer queries tend to carry compound asks. Both bonuses stack.
	words := len(strings.Fields(q))
	if words > 10 {
		score++
	}
	if words > 20 {
		score += 2
	}

	if strings.Count(q, "?") > 1 {
		score++
	}

	level := LevelDeep
	switch {
	case score <= 1:
		level = LevelSimple
	case score <= 4:
		level = LevelMedium
	}
	if score < 0 {
		score = 0
	}

	return Assessment{Score: score, Level: level, Triggers: triggers}
}
