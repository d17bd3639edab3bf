package render

import (
	"html/template"
	"io"

	"github.com/jonathan/coldmail/internal/types"
)

// PageState is what the HTML fragment needs from the session.
type PageState struct {
	Status   string
	Error    string
	Response *types.GenerationResponse
}

type cardView struct {
	Index    int
	Number   int
	Email    types.EmailResult
	Expanded bool
	Copied   bool
	Preview  string
	Matches  []string
	More     int
	Filename string
}

type pageView struct {
	PageState
	Summary string
	NoEmail string
	Cards   []cardView
}

var resultsTemplate = template.Must(template.New("results").Parse(`<section class="results" data-status="{{.Status}}">
{{- if eq .Status "loading"}}
  <p class="loading">Generating emails...</p>
{{- else if eq .Status "failed"}}
  <div class="error" role="alert"><h3>Error</h3><p class="error-message">{{.Error}}</p></div>
{{- else if eq .Status "success"}}
  {{- if .Cards}}
  <div class="summary"><h3>{{.Summary}}</h3><p class="message">{{.Response.Message}}</p></div>
  <a class="download-all" href="/api/session/export">Download all</a>
  <ol class="emails">
  {{- range .Cards}}
    <li class="email-card" data-index="{{.Index}}" data-expanded="{{.Expanded}}">
      <h4 class="job-title">{{.Email.JobTitle}}</h4>
      {{- if .Email.HasLocation}}<span class="location">{{.Email.Location}}</span>{{end}}
      {{- if .Email.HasExperienceLevel}}<span class="experience">{{.Email.ExperienceLevel}}</span>{{end}}
      {{- if .Email.HasWorkType}}<span class="work-type">{{.Email.WorkType}}</span>{{end}}
      {{- if .Copied}}<span class="copied">Copied</span>{{end}}
      <a class="download" href="/api/session/emails/{{.Index}}/download" download="{{.Filename}}">Download</a>
      {{- if .Expanded}}
      {{- if .Email.HasJobDescription}}<p class="job-description">{{.Preview}}</p>{{end}}
      {{- if .Email.RequiredSkills}}<ul class="skills">{{range .Email.RequiredSkills}}<li class="skill">{{.}}</li>{{end}}</ul>{{end}}
      {{- if .Matches}}<ul class="portfolio">{{range .Matches}}<li class="match">{{.}}</li>{{end}}</ul>{{end}}
      {{- if gt .More 0}}<p class="more-matches">+{{.More}} more matches</p>{{end}}
      <pre class="email-content">{{.Email.EmailContent}}</pre>
      {{- end}}
    </li>
  {{- end}}
  </ol>
  {{- else}}
  <p class="empty">{{.NoEmail}}</p>
  {{- end}}
{{- else}}
  <p class="placeholder">Generated emails will appear here</p>
{{- end}}
</section>
`))

// WriteHTML renders the results panel for st. v supplies per-card toggles and may
// be nil, in which case every card is collapsed.
func WriteHTML(w io.Writer, st PageState, v *Viewer) error {
	view := pageView{PageState: st, NoEmail: NoEmailsText}
	if st.Response != nil {
		view.Summary = Summary(st.Response)
		for i, email := range st.Response.Emails {
			shown, more := Matches(email.PortfolioMatches)
			view.Cards = append(view.Cards, cardView{
				Index:    i,
				Number:   i + 1,
				Email:    email,
				Expanded: v != nil && v.Expanded(i),
				Copied:   v != nil && v.Copied(i),
				Preview:  Preview(email.JobDescription),
				Matches:  shown,
				More:     more,
				Filename: EmailFilename(email, i),
			})
		}
	}
	return resultsTemplate.Execute(w, view)
}
