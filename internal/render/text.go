// Package render turns a generation response into terminal text, an HTML fragment,
// and plain-text export files.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/coldmail/internal/types"
)

const (
	// boxWidth is the width of the summary box.
	boxWidth = 60
	// descriptionPreview is how many characters of the job description are shown.
	descriptionPreview = 200
	// maxMatchesShown is how many portfolio matches a card lists.
	maxMatchesShown = 3
)

// NoEmailsText is shown for a response without emails.
const NoEmailsText = "No emails generated"

// Pluralize appends "s" to word unless count is exactly 1.
func Pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// Summary returns the headline for a response.
func Summary(resp *types.GenerationResponse) string {
	return fmt.Sprintf("Successfully generated %d %s", resp.TotalJobs, Pluralize("email", resp.TotalJobs))
}

// HasEmails reports whether resp carries any email to display.
func HasEmails(resp *types.GenerationResponse) bool {
	return resp != nil && len(resp.Emails) > 0
}

// Printer writes responses as terminal text.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	if content != "" {
		fmt.Fprintf(p.out, "├%s┤\n", border)
		for _, line := range strings.Split(content, "\n") {
			fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
		}
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResponse writes the summary box followed by one card per email.
// Cards the viewer marks as expanded include job details and the email body.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResponse(resp *types.GenerationResponse, v *Viewer) {
	if !HasEmails(resp) {
		fmt.Fprintln(p.out, NoEmailsText)
		return
	}

	p.printBox(Summary(resp), resp.Message)
	for i, email := range resp.Emails {
		fmt.Fprintln(p.out)
		fmt.Fprint(p.out, Card(i, email, v != nil && v.Expanded(i)))
	}
}

// PrintError writes a failure message.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintError(message string) {
	p.printBox("Error", message)
}

// Card renders one email as text.
func Card(index int, email types.EmailResult, expanded bool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%d] %s\n", index+1, email.JobTitle))
	if meta := metaLine(email); meta != "" {
		sb.WriteString("    " + meta + "\n")
	}
	if !expanded {
		return sb.String()
	}

	if email.HasJobDescription() {
		sb.WriteString("    Description: " + Preview(email.JobDescription) + "\n")
	}
	if len(email.RequiredSkills) > 0 {
		sb.WriteString("    Skills: " + strings.Join(email.RequiredSkills, ", ") + "\n")
	}
	if shown, more := Matches(email.PortfolioMatches); len(shown) > 0 {
		sb.WriteString("    Portfolio:\n")
		for _, m := range shown {
			sb.WriteString("      - " + m + "\n")
		}
		if more > 0 {
			sb.WriteString(fmt.Sprintf("      +%d more matches\n", more))
		}
	}
	sb.WriteString("    ---\n")
	for _, line := range strings.Split(email.EmailContent, "\n") {
		sb.WriteString("    " + line + "\n")
	}
	return sb.String()
}

// metaLine joins the specified location, experience level and work type.
func metaLine(email types.EmailResult) string {
	var parts []string
	if email.HasLocation() {
		parts = append(parts, "Location: "+email.Location)
	}
	if email.HasExperienceLevel() {
		parts = append(parts, "Experience: "+email.ExperienceLevel)
	}
	if email.HasWorkType() {
		parts = append(parts, "Work type: "+email.WorkType)
	}
	return strings.Join(parts, " | ")
}

// Preview shortens a job description to its first 200 characters.
func Preview(description string) string {
	runes := []rune(description)
	if len(runes) <= descriptionPreview {
		return description
	}
	return string(runes[:descriptionPreview]) + "..."
}

// Matches returns the portfolio matches to show and how many are hidden.
func Matches(matches types.PortfolioMatches) ([]string, int) {
	if len(matches) <= maxMatchesShown {
		return matches, 0
	}
	return matches[:maxMatchesShown], len(matches) - maxMatchesShown
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
