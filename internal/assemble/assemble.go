// Package assemble merges analysis and search output into the shapes the
// HTML template and the JSON API render. Everything here is pure: same
// inputs, same page.
package assemble

import (
	"github.com/mohammad-safakhou/seeker/internal/activity"
	"github.com/mohammad-safakhou/seeker/internal/query"
	"github.com/mohammad-safakhou/seeker/internal/search"
	"github.com/mohammad-safakhou/seeker/internal/search/models"
	"github.com/mohammad-safakhou/seeker/internal/synth"
)

const (
	pageWebResults   = 6
	pageImageResults = 6
	apiWebResults    = 10
	apiImageResults  = 12
	errorPageResults = 3
)

// ResultWithImages is one web hit paired with its illustration, if the
// image search produced one at the same rank.
type ResultWithImages struct {
	models.Result
	Images []models.ImageResult `json:"images"`
}

// Analysis is the rendered view of a synthesis outcome.
type Analysis struct {
	Summary         string            `json:"summary"`
	KeyPoints       []string          `json:"keyPoints"`
	Analysis        map[string]string `json:"analysis,omitempty"`
	Context         *synth.Context    `json:"context,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	RawText         string            `json:"rawText,omitempty"` // degraded synthesis only
}

// Result is the inner payload of a rendered page.
type Result struct {
	Query         string               `json:"query"`
	Analysis      Analysis             `json:"analysis"`
	SearchResults []ResultWithImages   `json:"searchResults"`
	Images        []models.ImageResult `json:"images"`
	Complexity    query.Level          `json:"complexity"`
	Error         string               `json:"error,omitempty"`
}

// Page is the full template payload for one search round.
type Page struct {
	Query  string `json:"query"`
	Result Result `json:"result"`
}

// BuildPage assembles the template payload. Context appears for medium
// and deep queries only, recommendations for deep only, and the
// misconceptions list is never nil once a context is present.
func BuildPage(q string, assessment query.Assessment, outcome synth.Outcome, res search.Results) Page {
	web := truncateResults(res.Web, pageWebResults)
	images := truncateImages(res.Images, pageImageResults)

	withImages := make([]ResultWithImages, 0, len(web))
	for i, r := range web {
		item := ResultWithImages{Result: r, Images: []models.ImageResult{}}
		if i < len(images) {
			item.Images = []models.ImageResult{images[i]}
		}
		withImages = append(withImages, item)
	}

	analysis := Analysis{}
	if outcome.Analysis != nil {
		analysis.Summary = outcome.Analysis.Summary
		analysis.KeyPoints = outcome.Analysis.KeyPoints
		analysis.Analysis = outcome.Analysis.Analysis

		if assessment.Level != query.LevelSimple {
			ctx := synth.Context{}
			if outcome.Analysis.Context != nil {
				ctx = *outcome.Analysis.Context
			}
			if ctx.Misconceptions == nil {
				ctx.Misconceptions = []string{}
			}
			analysis.Context = &ctx
		}
		if assessment.Level == query.LevelDeep {
			analysis.Recommendations = outcome.Analysis.Recommendations
		}
	} else {
		analysis.RawText = outcome.RawText
	}

	return Page{
		Query: q,
		Result: Result{
			Query:         q,
			Analysis:      analysis,
			SearchResults: withImages,
			Images:        images,
			Complexity:    assessment.Level,
		},
	}
}

// BuildErrorPage assembles the degraded payload shown when a round
// fails partway: the error plus whatever results survived.
func BuildErrorPage(q, errMsg string, res search.Results) Page {
	return Page{
		Query: q,
		Result: Result{
			Query:         q,
			Error:         errMsg,
			SearchResults: pairNone(truncateResults(res.Web, errorPageResults)),
			Images:        truncateImages(res.Images, errorPageResults),
		},
	}
}

// APIResponse is the JSON-API shape of one query round. WebActivity is
// the request's activity log, filled in by the handler.
type APIResponse struct {
	WebResults       []models.Result      `json:"webResults"`
	ImageResults     []models.ImageResult `json:"imageResults"`
	LLMResponse      string               `json:"llmResponse"`
	AnalysisResponse *synth.Analysis      `json:"analysisResponse,omitempty"`
	NeedsAnalysis    bool                 `json:"needsAnalysis"`
	IsConversational bool                 `json:"isConversational"`
	WebActivity      []activity.Event     `json:"webActivity"`
}

// BuildAPIResponse assembles the JSON payload. The API returns more raw
// results than the page because it has no layout to fit.
func BuildAPIResponse(answer string, analysis *synth.Analysis, needsAnalysis bool, res search.Results) APIResponse {
	web := truncateResults(res.Web, apiWebResults)
	if web == nil {
		web = []models.Result{}
	}
	images := truncateImages(res.Images, apiImageResults)
	if images == nil {
		images = []models.ImageResult{}
	}
	return APIResponse{
		WebResults:       web,
		ImageResults:     images,
		LLMResponse:      answer,
		AnalysisResponse: analysis,
		NeedsAnalysis:    needsAnalysis,
		WebActivity:      []activity.Event{},
	}
}

// BuildConversationalResponse assembles the payload for chit-chat that
// never touched the search providers.
func BuildConversationalResponse(answer string) APIResponse {
	return APIResponse{
		WebResults:       []models.Result{},
		ImageResults:     []models.ImageResult{},
		LLMResponse:      answer,
		IsConversational: true,
		WebActivity:      []activity.Event{},
	}
}

func pairNone(results []models.Result) []ResultWithImages {
	out := make([]ResultWithImages, 0, len(results))
	for _, r := range results {
		out = append(out, ResultWithImages{Result: r, Images: []models.ImageResult{}})
	}
	return out
}

func truncateResults(in []models.Result, k int) []models.Result {
	if len(in) > k {
		return in[:k]
	}
	return in
}

func truncateImages(in []models.ImageResult, k int) []models.ImageResult {
	if len(in) > k {
		return in[:k]
	}
	return in
}
