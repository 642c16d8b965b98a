package analyzer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rt0111/onayformukontrol/internal/analyzer"
	"github.com/rt0111/onayformukontrol/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeBatchKeepsInputOrder(t *testing.T) {
	decoder := &fakeDecoder{texts: map[string]string{
		"a.pdf": form,
		"c.pdf": "Satınalma Kararı\nToplam tutar: 700.000 USD",
	}}
	a := newAnalyzer(t, nil, analyzer.WithDecoder(decoder))

	var mu sync.Mutex
	var progress []int
	items := a.AnalyzeBatchWithProgress(context.Background(), []string{"a.pdf", "missing.pdf", "c.pdf"}, 2,
		func(processed, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 3, total)
			progress = append(progress, processed)
		})

	require.Len(t, items, 3)
	assert.Equal(t, "a.pdf", items[0].Path)
	require.NoError(t, items[0].Err)
	assert.Equal(t, "Müdür / Bölge Müdürü", items[0].Result.ResolvedAuthority.Value)

	assert.Equal(t, "missing.pdf", items[1].Path)
	assert.True(t, errors.Is(items[1].Err, processor.ErrDecodeFailed))
	assert.Nil(t, items[1].Result)

	require.NoError(t, items[2].Err)
	assert.Equal(t, "Genel Müdür", items[2].Result.ResolvedAuthority.Value)

	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestAnalyzeBatchCanceled(t *testing.T) {
	a := newAnalyzer(t, nil, analyzer.WithDecoder(&fakeDecoder{texts: map[string]string{"a.pdf": form}}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := a.AnalyzeBatch(ctx, []string{"a.pdf", "a.pdf"}, 0)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Error(t, item.Err)
	}
}
