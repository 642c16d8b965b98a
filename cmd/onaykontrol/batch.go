package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rt0111/onayformukontrol/internal/analyzer"
	"github.com/rt0111/onayformukontrol/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	batchOutDir      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <file.pdf|dir>...",
	Short: "Analyze many PDFs in parallel",
	Long: `Analyze PDF files in parallel and write one report per file.

Directories are expanded to the *.pdf files they contain.

Examples:
  onaykontrol batch ./formlar --out ./raporlar --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	addReportFlags(batchCmd)
	batchCmd.Flags().StringVar(&batchOutDir, "out", ".", "directory for the reports")
	batchCmd.Flags().IntVar(&batchConcurrency, "max-concurrent", analyzer.DefaultMaxConcurrent, "maximum parallel analyses")
}

// expandInputs replaces directories with the PDF files inside them
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	return paths, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
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

	paths, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDF files found")
	}
	if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	start := time.Now()
	progressFunc := func(processed, total int) {
		elapsed := time.Since(start)
		estimatedTotal := elapsed * time.Duration(total) / time.Duration(processed)
		a.logger.Info(ctx, "Progress",
			zap.Int("processed", processed),
			zap.Int("total", total),
			zap.Duration("remaining", (estimatedTotal-elapsed).Round(time.Second)),
		)
	}

	items := a.analyzer.AnalyzeBatchWithProgress(ctx, paths, batchConcurrency, progressFunc)

	renderer := report.NewRenderer(a.ruleset)
	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "HATA %s: %v\n", item.Path, item.Err)
			continue
		}
		out := reportPath(batchOutDir, item.Path, opts.Format)
		if err := writeReport(cmd.OutOrStdout(), renderer, item.Result, opts, out); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "HATA %s: %v\n", item.Path, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d dosya analiz edildi, %d hata, süre %v\n",
		len(items)-failed, failed, time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(items))
	}
	return nil
}
