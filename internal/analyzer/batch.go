package analyzer

import (
	"context"
	"sync"

	"github.com/rt0111/onayformukontrol/internal/models"
)

// DefaultMaxConcurrent limits parallel analyses in a batch
const DefaultMaxConcurrent = 3

// BatchItem is the outcome of one file in a batch
type BatchItem struct {
	Path   string
	Result *models.AnalysisResult
	Err    error
}

// AnalyzeBatch analyzes files in parallel and returns one item per path in
// input order. A failed file does not stop the others.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, paths []string, maxConcurrent int) []BatchItem {
	return a.AnalyzeBatchWithProgress(ctx, paths, maxConcurrent, nil)
}

// AnalyzeBatchWithProgress analyzes files in parallel with progress reporting
func (a *Analyzer) AnalyzeBatchWithProgress(ctx context.Context, paths []string, maxConcurrent int,
	progressFunc func(processed, total int)) []BatchItem {

	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrent)

	// Protects the progress counter
	var mu sync.Mutex
	processed := 0
	total := len(paths)

	items := make([]BatchItem, total)

	for i := range paths {
		items[i].Path = paths[i]

		select {
		case <-ctx.Done():
			items[i].Err = ctx.Err()
			continue
		case semaphore <- struct{}{}: // Acquire semaphore
		}

		wg.Add(1)
		go func(i int) {
			defer func() {
				wg.Done()
				<-semaphore
			}() // Release semaphore

			result, err := a.AnalyzeFile(ctx, paths[i])
			items[i].Result = result
			items[i].Err = err

			mu.Lock()
			processed++
			if progressFunc != nil {
				progressFunc(processed, total)
			}
			mu.Unlock()
		}(i)
	}

	wg.Wait()

	return items
}
