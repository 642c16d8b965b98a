package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/report"

	"github.com/spf13/cobra"
)

var (
	outputPath  string
	formatFlag  string
	jsonFlag    bool
	onlyRisks   bool
	onlySummary bool
	narrative   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.pdf>",
	Short: "Analyze a procurement approval PDF",
	Long: `Analyze a procurement approval PDF and print the report.

Examples:
  # Text report on stdout
  onaykontrol analyze onay.pdf

  # JSON report into a file
  onaykontrol analyze onay.pdf --json -o rapor.json

  # Only the risk findings
  onaykontrol analyze onay.pdf --only-risks`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	addReportFlags(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the report to this file")
	analyzeCmd.Flags().BoolVar(&narrative, "narrative", false, "add an LLM narrative (requires Ollama)")
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&formatFlag, "format", "", "report format: text, json or yaml")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "shorthand for --format json")
	cmd.Flags().BoolVar(&onlyRisks, "only-risks", false, "report only the risk findings")
	cmd.Flags().BoolVar(&onlySummary, "only-summary", false, "report only the summary and approval")
	cmd.MarkFlagsMutuallyExclusive("only-risks", "only-summary")
}

// reportOptions resolves the report flags against the configured default
func reportOptions(defaultFormat string) (report.Options, error) {
	name := defaultFormat
	if formatFlag != "" {
		name = formatFlag
	}
	if jsonFlag {
		name = string(report.FormatJSON)
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{Format: format, OnlyRisks: onlyRisks, OnlySummary: onlySummary}, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, narrative, nil)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	opts, err := reportOptions(a.cfg.Report.Format)
	if err != nil {
		return err
	}

	result, err := a.analyzer.AnalyzeFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", args[0], err)
	}

	return writeReport(cmd.OutOrStdout(), report.NewRenderer(a.ruleset), result, opts, outputPath)
}

// writeReport renders to path, or to out when path is empty
func writeReport(out io.Writer, renderer *report.Renderer, result *models.AnalysisResult, opts report.Options, path string) error {
	if path == "" {
		return renderer.Render(out, result, opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := renderer.Render(f, result, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	fmt.Fprintf(out, "Rapor kaydedildi: %s\n", path)
	return nil
}

// reportPath names the report of input inside dir
func reportPath(dir, input string, format report.Format) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"_rapor"+format.Extension())
}
