package ingestion

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector matches page chrome that never belongs to a job description.
const noiseSelector = "nav, footer, header, script, style, noscript, form, .ad, .advertisement, .sidebar, .cookie-banner, .popup"

// jobPostingSelectors are tried in order; the first match wins, else <body>.
var jobPostingSelectors = []string{
	".job-description",
	"#job-description",
	".job-details",
	".posting-content",
	"[data-testid='job-description']",
	"main",
	"article",
	"#content",
}

// ExtractMainText parses a saved job posting page and returns its main text,
// one block per line.
func ExtractMainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	var main *goquery.Selection
	for _, selector := range jobPostingSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			main = sel.First()
			break
		}
	}
	if main == nil {
		main = doc.Find("body")
	}

	// Block elements become separate lines so bullets survive.
	main.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n- ")
	})
	main.Find("p, br, h1, h2, h3, h4, div").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(main.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
