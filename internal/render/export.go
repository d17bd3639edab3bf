package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/coldmail/internal/types"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	pathSeparator = regexp.MustCompile(`[/\\]`)
)

// EmailFilename is the download name for the email at index, e.g.
// "cold-email-senior-go-engineer-1.txt".
func EmailFilename(email types.EmailResult, index int) string {
	slug := whitespaceRun.ReplaceAllString(email.JobTitle, "-")
	slug = pathSeparator.ReplaceAllString(slug, "-")
	return fmt.Sprintf("cold-email-%s-%d.txt", strings.ToLower(slug), index+1)
}

// AggregateFilename is the download name for all emails, stamped with the UTC date.
func AggregateFilename(now time.Time) string {
	return fmt.Sprintf("cold-emails-%s.txt", now.UTC().Format("2006-01-02"))
}

// AggregateContent concatenates every email under a numbered banner.
func AggregateContent(emails []types.EmailResult) string {
	parts := make([]string, 0, len(emails))
	for i, email := range emails {
		parts = append(parts, fmt.Sprintf("=== Email %d ===\n\nJob: %s\n\n%s\n\n", i+1, email.JobTitle, email.EmailContent))
	}
	return strings.Join(parts, "\n")
}

// WriteEmail writes the email at index into dir and returns the file path.
func WriteEmail(dir string, resp *types.GenerationResponse, index int) (string, error) {
	if resp == nil || index < 0 || index >= len(resp.Emails) {
		return "", fmt.Errorf("email index %d out of range", index)
	}
	email := resp.Emails[index]
	return writeFile(dir, EmailFilename(email, index), email.EmailContent)
}

// WriteAll writes the aggregate export into dir and returns the file path.
func WriteAll(dir string, resp *types.GenerationResponse, now time.Time) (string, error) {
	if !HasEmails(resp) {
		return "", fmt.Errorf("no emails to export")
	}
	return writeFile(dir, AggregateFilename(now), AggregateContent(resp.Emails))
}

func writeFile(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}
