package render

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/coldmail/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() *types.GenerationResponse {
	return &types.GenerationResponse{
		Success:   true,
		TotalJobs: 2,
		Message:   "Successfully generated 2 emails",
		Emails: []types.EmailResult{
			{
				JobTitle:         "Senior Go Engineer",
				Location:         "Berlin",
				ExperienceLevel:  types.NotSpecified,
				WorkType:         "Remote",
				JobDescription:   strings.Repeat("a", 250),
				RequiredSkills:   []string{"Go", "Kubernetes"},
				PortfolioMatches: types.PortfolioMatches{"https://p/1", "https://p/2", "https://p/3", "https://p/4", "https://p/5"},
				EmailContent:     "Dear hiring manager,\nHello.",
			},
			{
				JobTitle:     "Data  Analyst",
				Location:     types.NotSpecified,
				EmailContent: "Hi there",
			},
		},
	}
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "emails", Pluralize("email", 0))
	assert.Equal(t, "email", Pluralize("email", 1))
	assert.Equal(t, "emails", Pluralize("email", 2))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Successfully generated 2 emails", Summary(&types.GenerationResponse{TotalJobs: 2}))
	assert.Equal(t, "Successfully generated 1 email", Summary(&types.GenerationResponse{TotalJobs: 1}))
	assert.NotContains(t, Summary(&types.GenerationResponse{TotalJobs: 1}), "1 emails")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))

	long := Preview(strings.Repeat("é", 201))
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.Equal(t, 203, len([]rune(long)))
}

func TestMatches(t *testing.T) {
	shown, more := Matches(types.PortfolioMatches{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, []string(shown))
	assert.Zero(t, more)

	shown, more = Matches(types.PortfolioMatches{"a", "b", "c", "d"})
	assert.Len(t, shown, 3)
	assert.Equal(t, 1, more)
}

func TestCard_CollapsedHidesSentinels(t *testing.T) {
	email := sampleResponse().Emails[0]
	card := Card(0, email, false)

	assert.Contains(t, card, "[1] Senior Go Engineer")
	assert.Contains(t, card, "Location: Berlin")
	assert.Contains(t, card, "Work type: Remote")
	assert.NotContains(t, card, "Experience")
	assert.NotContains(t, card, types.NotSpecified)
	assert.NotContains(t, card, "Dear hiring manager")
}

func TestCard_Expanded(t *testing.T) {
	card := Card(0, sampleResponse().Emails[0], true)

	assert.Contains(t, card, "Skills: Go, Kubernetes")
	assert.Contains(t, card, "https://p/3")
	assert.NotContains(t, card, "https://p/4")
	assert.Contains(t, card, "+2 more matches")
	assert.Contains(t, card, strings.Repeat("a", 200)+"...")
	assert.Contains(t, card, "    Dear hiring manager,\n    Hello.")
}

func TestPrinter_PrintResponse(t *testing.T) {
	var buf bytes.Buffer
	resp := sampleResponse()
	v := NewViewer(resp, nil)
	_, err := v.Toggle(1)
	require.NoError(t, err)

	NewPrinter(&buf).PrintResponse(resp, v)
	out := buf.String()

	assert.Contains(t, out, "Successfully generated 2 emails")
	assert.Contains(t, out, "[1] Senior Go Engineer")
	assert.Contains(t, out, "[2] Data  Analyst")
	assert.Contains(t, out, "Hi there")
	assert.NotContains(t, out, "Dear hiring manager")
}

func TestPrinter_NoEmails(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintResponse(&types.GenerationResponse{Message: "No job postings found"}, nil)

	assert.Equal(t, NoEmailsText+"\n", buf.String())
}

func TestPrinter_PrintError(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintError("bad url")

	assert.Contains(t, buf.String(), "Error")
	assert.Contains(t, buf.String(), "bad url")
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func TestViewer_Toggle(t *testing.T) {
	v := NewViewer(sampleResponse(), nil)

	expanded, err := v.Toggle(0)
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.True(t, v.Expanded(0))
	assert.False(t, v.Expanded(1))

	expanded, err = v.Toggle(0)
	require.NoError(t, err)
	assert.False(t, expanded)

	_, err = v.Toggle(5)
	assert.Error(t, err)

	v.ExpandAll()
	assert.True(t, v.Expanded(0))
	assert.True(t, v.Expanded(1))
}

func TestViewer_Copy(t *testing.T) {
	cb := &fakeClipboard{}
	v := NewViewer(sampleResponse(), cb)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	require.NoError(t, v.Copy(1))
	assert.Equal(t, "Hi there", cb.text)
	assert.True(t, v.Copied(1))
	assert.False(t, v.Copied(0))

	require.NoError(t, v.Copy(0))
	assert.True(t, v.Copied(0))
	assert.False(t, v.Copied(1))

	now = now.Add(CopiedFor)
	assert.False(t, v.Copied(0))
}

func TestViewer_CopyErrors(t *testing.T) {
	assert.Error(t, NewViewer(sampleResponse(), nil).Copy(0))
	assert.Error(t, NewViewer(sampleResponse(), &fakeClipboard{}).Copy(-1))

	v := NewViewer(sampleResponse(), &fakeClipboard{err: errors.New("no display")})
	err := v.Copy(0)
	require.Error(t, err)
	assert.False(t, v.Copied(0))
}

func TestEmailFilename(t *testing.T) {
	resp := sampleResponse()
	assert.Equal(t, "cold-email-senior-go-engineer-1.txt", EmailFilename(resp.Emails[0], 0))
	assert.Equal(t, "cold-email-data-analyst-2.txt", EmailFilename(resp.Emails[1], 1))
	assert.Equal(t, "cold-email-ci-cd-engineer-3.txt", EmailFilename(types.EmailResult{JobTitle: "CI/CD Engineer"}, 2))
}

func TestAggregateFilename(t *testing.T) {
	now := time.Date(2026, 10, 19, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	assert.Equal(t, "cold-emails-2026-10-20.txt", AggregateFilename(now))
}

func TestAggregateContent(t *testing.T) {
	got := AggregateContent(sampleResponse().Emails)
	want := "=== Email 1 ===\n\nJob: Senior Go Engineer\n\nDear hiring manager,\nHello.\n\n" +
		"\n" +
		"=== Email 2 ===\n\nJob: Data  Analyst\n\nHi there\n\n"
	assert.Equal(t, want, got)
}

func TestWriteEmailAndAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	resp := sampleResponse()

	path, err := WriteEmail(dir, resp, 1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cold-email-data-analyst-2.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", string(data))

	path, err = WriteAll(dir, resp, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "cold-emails-2026-03-04.txt", filepath.Base(path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, AggregateContent(resp.Emails), string(data))

	_, err = WriteEmail(dir, resp, 2)
	assert.Error(t, err)
	_, err = WriteAll(dir, &types.GenerationResponse{}, time.Now())
	assert.Error(t, err)
}

func renderDoc(t *testing.T, st PageState, v *Viewer) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, st, v))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestWriteHTML_States(t *testing.T) {
	idle := renderDoc(t, PageState{Status: "idle"}, nil)
	assert.Equal(t, 1, idle.Find(".placeholder").Length())

	loading := renderDoc(t, PageState{Status: "loading"}, nil)
	assert.Equal(t, 1, loading.Find(".loading").Length())
	assert.Zero(t, loading.Find(".error").Length())

	failed := renderDoc(t, PageState{Status: "failed", Error: "bad <url>"}, nil)
	assert.Equal(t, "bad <url>", failed.Find(".error-message").Text())
	assert.Zero(t, failed.Find(".summary").Length())

	empty := renderDoc(t, PageState{Status: "success", Response: &types.GenerationResponse{}}, nil)
	assert.Equal(t, NoEmailsText, empty.Find(".empty").Text())
}

func TestWriteHTML_Success(t *testing.T) {
	resp := sampleResponse()
	v := NewViewer(resp, &fakeClipboard{})
	_, err := v.Toggle(0)
	require.NoError(t, err)
	require.NoError(t, v.Copy(1))

	doc := renderDoc(t, PageState{Status: "success", Response: resp}, v)

	assert.Equal(t, "Successfully generated 2 emails", doc.Find(".summary h3").Text())
	cards := doc.Find(".email-card")
	require.Equal(t, 2, cards.Length())

	first := cards.Eq(0)
	assert.Equal(t, "true", first.AttrOr("data-expanded", ""))
	assert.Equal(t, "Berlin", first.Find(".location").Text())
	assert.Zero(t, first.Find(".experience").Length())
	assert.Equal(t, 2, first.Find(".skill").Length())
	assert.Equal(t, 3, first.Find(".match").Length())
	assert.Equal(t, "+2 more matches", first.Find(".more-matches").Text())
	assert.Contains(t, first.Find(".email-content").Text(), "Dear hiring manager")

	second := cards.Eq(1)
	assert.Equal(t, "false", second.AttrOr("data-expanded", ""))
	assert.Zero(t, second.Find(".location").Length())
	assert.Zero(t, second.Find(".email-content").Length())
	assert.Equal(t, 1, second.Find(".copied").Length())
	assert.Equal(t, "cold-email-data-analyst-2.txt", second.Find(".download").AttrOr("download", ""))
}
