// Package slides exports one query round as a standalone HTML slide
// deck the user can download and present offline.
package slides

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"time"

	"github.com/mohammad-safakhou/seeker/internal/search/models"
	"github.com/mohammad-safakhou/seeker/internal/synth"
)

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Deck is the input for one exported presentation.
type Deck struct {
	Query        string
	LLMResponse  string
	Analysis     *synth.Analysis
	WebResults   []models.Result
	ImageResults []models.ImageResult
	Timestamp    time.Time
}

// Filename derives a safe download name from the query.
func Filename(query string) string {
	return unsafeFilename.ReplaceAllString(query, "_") + "_slides.html"
}

// Render produces the standalone HTML document.
func Render(deck Deck) (string, error) {
	if deck.Timestamp.IsZero() {
		deck.Timestamp = time.Now()
	}
	var buf bytes.Buffer
	if err := deckTemplate.Execute(&buf, deck); err != nil {
		return "", fmt.Errorf("render slides: %w", err)
	}
	return buf.String(), nil
}

var deckTemplate = template.Must(template.New("slides").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("January 2, 2006") },
	"time": func(t time.Time) string { return t.Format("15:04:05") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Query}} - Analysis Slides</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: #333; line-height: 1.6; }
.slide { min-height: 100vh; display: none; flex-direction: column; justify-content: center; align-items: center; padding: 60px; background: rgba(255,255,255,0.95); }
.slide.active { display: flex; }
.slide-title { font-size: 3rem; font-weight: 700; color: #2c3e50; margin-bottom: 2rem; }
.slide-subtitle { font-size: 1.5rem; color: #7f8c8d; margin-bottom: 3rem; }
.slide-text { font-size: 1.2rem; color: #34495e; max-width: 900px; text-align: left; line-height: 1.8; }
.slide-text li { margin-bottom: 1rem; }
.source { margin-bottom: 1.2rem; }
.source a { color: #2980b9; text-decoration: none; }
.images { display: flex; flex-wrap: wrap; gap: 16px; justify-content: center; }
.images img { max-width: 240px; max-height: 180px; border-radius: 8px; }
.nav { position: fixed; bottom: 24px; right: 24px; background: rgba(44,62,80,0.85); color: #fff; border-radius: 8px; padding: 8px 16px; }
.nav button { background: none; border: none; color: #fff; font-size: 1.1rem; cursor: pointer; padding: 0 8px; }
</style>
</head>
<body>
<section class="slide active">
  <h1 class="slide-title">{{.Query}}</h1>
  <p class="slide-subtitle">Analysis generated on {{date .Timestamp}} at {{time .Timestamp}}</p>
</section>
<section class="slide">
  <h2 class="slide-title">Summary</h2>
  <div class="slide-text">
  {{- if .Analysis}}<p>{{.Analysis.Summary}}</p>
  {{- else if .LLMResponse}}<p>{{.LLMResponse}}</p>
  {{- else}}<p>No analysis available.</p>{{end}}
  </div>
</section>
<section class="slide">
  <h2 class="slide-title">Key Points</h2>
  <div class="slide-text">
  {{- if and .Analysis .Analysis.KeyPoints}}
  <ul>{{range .Analysis.KeyPoints}}<li>{{.}}</li>{{end}}</ul>
  {{- else}}<p>No key points available.</p>{{end}}
  </div>
</section>
<section class="slide">
  <h2 class="slide-title">Sources</h2>
  <div class="slide-text">
  {{- if .WebResults}}
  {{- range .WebResults}}
  <div class="source"><a href="{{.URL}}">{{.Title}}</a><p>{{.Snippet}}</p></div>
  {{- end}}
  {{- else}}<p>No sources available.</p>{{end}}
  </div>
</section>
<section class="slide">
  <h2 class="slide-title">Images</h2>
  <div class="images">
  {{- if .ImageResults}}
  {{- range .ImageResults}}<img src="{{.URL}}" alt="{{.Title}}">{{end}}
  {{- else}}<p>No images available.</p>{{end}}
  </div>
</section>
<div class="nav">
  <button onclick="move(-1)">&#8592;</button>
  <span id="current-slide">1</span> / <span id="total-slides">5</span>
  <button onclick="move(1)">&#8594;</button>
</div>
<script>
var slides = document.querySelectorAll('.slide');
var current = 0;
document.getElementById('total-slides').textContent = slides.length;
function move(delta) {
  slides[current].classList.remove('active');
  current = (current + delta + slides.length) % slides.length;
  slides[current].classList.add('active');
  document.getElementById('current-slide').textContent = current + 1;
}
document.addEventListener('keydown', function (e) {
  if (e.key === 'ArrowRight') move(1);
  if (e.key === 'ArrowLeft') move(-1);
});
</script>
</body>
</html>
`))
