package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jonathan/coldmail/internal/client"
	"github.com/jonathan/coldmail/internal/composer"
	"github.com/jonathan/coldmail/internal/ingestion"
	"github.com/jonathan/coldmail/internal/render"
	"github.com/jonathan/coldmail/internal/session"
	"github.com/jonathan/coldmail/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate cold emails for a job posting",
	Long: `Generate cold emails from either a job posting URL or a job description.
The description may be given inline or read from a text or HTML file.`,
	RunE: runGenerate,
}

var (
	genURL             string
	genDescription     string
	genDescriptionFile string
	genOutDir          string
	genExpand          bool
	genExport          bool
	genSave            int
	genCopy            int
)

// Overridden in tests.
var (
	nowFunc      = time.Now
	clipboardFor = func() render.Clipboard {
		if render.SystemClipboardAvailable() {
			return render.SystemClipboard{}
		}
		return nil
	}
)

func init() {
	generateCmd.Flags().StringVarP(&genURL, "url", "u", "", "Job posting or careers page URL")
	generateCmd.Flags().StringVarP(&genDescription, "description", "d", "", "Job description text")
	generateCmd.Flags().StringVarP(&genDescriptionFile, "description-file", "f", "", "Path to a text or HTML file containing the job description")
	generateCmd.Flags().StringVarP(&genOutDir, "out", "o", "", "Output directory for exported emails (default: config output_dir)")
	generateCmd.Flags().BoolVar(&genExpand, "expand", false, "Show job details and email content for every card")
	generateCmd.Flags().BoolVar(&genExport, "export", false, "Write all emails to a single dated text file")
	generateCmd.Flags().IntVar(&genSave, "save", 0, "Write email N (1-based) to its own text file")
	generateCmd.Flags().IntVar(&genCopy, "copy", 0, "Copy email N (1-based) to the clipboard")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	mode, input, err := generateInput()
	if err != nil {
		return err
	}

	ctrl, err := newSessionController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	var sub *session.Submission
	form := composer.New(func(req types.GenerationRequest) {
		sub = ctrl.Submit(cmd.Context(), req)
	}, ctrl.Reset)

	if err := form.SetMode(mode); err != nil {
		return err
	}
	if err := form.SetInput(mode, input); err != nil {
		return err
	}
	if _, err := form.Submit(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generating emails from %s...\n", describeMode(mode))

	st, err := sub.Wait(cmd.Context())
	if err != nil {
		form.Reset()
		return fmt.Errorf("generation cancelled: %w", err)
	}

	printer := render.NewPrinter(out)
	if st.Status == session.StatusFailed {
		printer.PrintError(st.Error)
		return errGenerationFailed
	}

	viewer := render.NewViewer(st.Response, clipboardFor())
	if genExpand {
		viewer.ExpandAll()
	}
	printer.PrintResponse(st.Response, viewer)

	return exportResults(cmd, viewer)
}

// generateInput picks the mode from the mutually exclusive input flags.
func generateInput() (types.Mode, string, error) {
	set := 0
	for _, v := range []string{genURL, genDescription, genDescriptionFile} {
		if v != "" {
			set++
		}
	}
	if set == 0 {
		return "", "", fmt.Errorf("one of --url, --description or --description-file must be provided")
	}
	if set > 1 {
		return "", "", fmt.Errorf("--url, --description and --description-file are mutually exclusive; provide only one")
	}

	switch {
	case genURL != "":
		return types.ModeURL, genURL, nil
	case genDescription != "":
		return types.ModeDescription, genDescription, nil
	default:
		text, err := ingestion.LoadDescription(genDescriptionFile)
		if err != nil {
			return "", "", fmt.Errorf("failed to load description: %w", err)
		}
		return types.ModeDescription, text, nil
	}
}

func exportResults(cmd *cobra.Command, viewer *render.Viewer) error {
	resp := viewer.Response()
	if !genExport && genSave == 0 && genCopy == 0 {
		return nil
	}
	if !render.HasEmails(resp) {
		return fmt.Errorf("no emails to export")
	}

	out := cmd.OutOrStdout()
	dir, err := cfg.ResolveOutputDir(genOutDir)
	if err != nil {
		return err
	}

	if genSave != 0 {
		path, err := render.WriteEmail(dir, resp, genSave-1)
		if err != nil {
			return fmt.Errorf("failed to save email %d: %w", genSave, err)
		}
		fmt.Fprintf(out, "Saved email %d: %s\n", genSave, path)
	}
	if genExport {
		path, err := render.WriteAll(dir, resp, nowFunc())
		if err != nil {
			return fmt.Errorf("failed to export emails: %w", err)
		}
		fmt.Fprintf(out, "Exported %d %s: %s\n", len(resp.Emails), render.Pluralize("email", len(resp.Emails)), path)
	}
	if genCopy != 0 {
		if err := viewer.Copy(genCopy - 1); err != nil {
			appLog.Warn("copy failed", zap.Int("email", genCopy), zap.Error(err))
			return fmt.Errorf("failed to copy email %d: %w", genCopy, err)
		}
		fmt.Fprintf(out, "Copied email %d to clipboard\n", genCopy)
	}
	return nil
}

// newSessionController builds the generation client and its controller. The client
// gets no timeout of its own; the controller's per-call deadline bounds each request.
func newSessionController() (*session.Controller, error) {
	c, err := client.New(cfg.Endpoint, &client.Options{HTTPClient: &http.Client{}, Logger: appLog})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return session.New(c, &session.Options{Timeout: cfg.Timeout, Logger: appLog}), nil
}

func describeMode(mode types.Mode) string {
	if mode == types.ModeURL {
		return "job URL"
	}
	return "job description"
}
