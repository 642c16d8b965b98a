package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/report"

	"github.com/spf13/cobra"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Analyze PDFs one after another from a prompt",
	Long: `Start an interactive session. Type a PDF path to analyze it.

Commands:
  /format text|json|yaml   change the report format
  /risks                   show only risk findings
  /summary                 show only the summary and approval
  /all                     show the full report
  exit, quit               leave the session`,
	Args: cobra.NoArgs,
	RunE: runInteractive,
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false, nil)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	opts, err := reportOptions(a.cfg.Report.Format)
	if err != nil {
		return err
	}

	session := &interactiveSession{
		analyze:  a.analyzer.AnalyzeFile,
		renderer: report.NewRenderer(a.ruleset),
		opts:     opts,
	}
	return session.run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

type interactiveSession struct {
	analyze  func(ctx context.Context, path string) (*models.AnalysisResult, error)
	renderer *report.Renderer
	opts     report.Options
}

func (s *interactiveSession) run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Onay Formu Kontrol - analiz edilecek PDF yolunu yazın (çıkmak için 'exit')")

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(input)
		if lower == "exit" || lower == "quit" {
			break
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(lower, "/") {
			s.command(out, lower)
			continue
		}

		result, err := s.analyze(ctx, strings.Trim(input, `"'`))
		if err != nil {
			fmt.Fprintf(out, "Hata: %v\n", err)
			continue
		}
		if err := s.renderer.Render(out, result, s.opts); err != nil {
			fmt.Fprintf(out, "Hata: %v\n", err)
		}
	}

	return scanner.Err()
}

func (s *interactiveSession) command(out io.Writer, input string) {
	switch {
	case strings.HasPrefix(input, "/format"):
		format, err := report.ParseFormat(strings.TrimSpace(strings.TrimPrefix(input, "/format")))
		if err != nil {
			fmt.Fprintf(out, "Hata: %v\n", err)
			return
		}
		s.opts.Format = format
		fmt.Fprintf(out, "Rapor biçimi: %s\n", format)
	case input == "/risks":
		s.opts.OnlyRisks, s.opts.OnlySummary = true, false
		fmt.Fprintln(out, "Yalnızca risk bulguları gösterilecek")
	case input == "/summary":
		s.opts.OnlyRisks, s.opts.OnlySummary = false, true
		fmt.Fprintln(out, "Yalnızca özet gösterilecek")
	case input == "/all":
		s.opts.OnlyRisks, s.opts.OnlySummary = false, false
		fmt.Fprintln(out, "Tam rapor gösterilecek")
	default:
		fmt.Fprintf(out, "Bilinmeyen komut: %s\n", input)
	}
}
