// internal/processor/pdf.go
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rt0111/onayformukontrol/internal/logging"
	"github.com/rt0111/onayformukontrol/internal/models"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrDecodeFailed is returned when every decoder backend failed
var ErrDecodeFailed = errors.New("decode failed")

// Backend converts document bytes into plain text
type Backend interface {
	Name() string
	Decode(r io.ReaderAt, size int64) (string, error)
}

// Decoded is the text produced by the first successful backend
type Decoded struct {
	Backend string
	Text    models.DecisionText
}

// PDFProcessor decodes documents through an ordered list of backends
type PDFProcessor struct {
	Backends []Backend
	logger   *logging.Logger
}

// DefaultBackends returns the backends in priority order
func DefaultBackends() []Backend {
	return []Backend{RowBackend{}, PlainTextBackend{}, UTF8TextBackend{}}
}

// NewPDFProcessor creates a new PDF processor
func NewPDFProcessor(logger *logging.Logger, backends ...Backend) *PDFProcessor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(backends) == 0 {
		backends = DefaultBackends()
	}
	return &PDFProcessor{
		Backends: backends,
		logger:   logger.Named("decoder"),
	}
}

// ExtractFile decodes the document at filePath
func (p *PDFProcessor) ExtractFile(ctx context.Context, filePath string) (Decoded, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: failed to open document: %w", ErrDecodeFailed, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: failed to stat document: %w", ErrDecodeFailed, err)
	}

	return p.Extract(ctx, f, info.Size())
}

// ExtractBytes decodes an in-memory document
func (p *PDFProcessor) ExtractBytes(ctx context.Context, data []byte) (Decoded, error) {
	return p.Extract(ctx, bytes.NewReader(data), int64(len(data)))
}

// Extract tries each backend in order and returns the first non-empty text
func (p *PDFProcessor) Extract(ctx context.Context, r io.ReaderAt, size int64) (Decoded, error) {
	var errs []error

	for _, backend := range p.Backends {
		text, err := backend.Decode(r, size)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("no text")
		}
		if err != nil {
			p.logger.Debug(ctx, "decoder backend failed",
				zap.String("backend", backend.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}

		p.logger.Debug(ctx, "document decoded", zap.String("backend", backend.Name()))
		return Decoded{
			Backend: backend.Name(),
			Text:    models.NewDecisionText(p.preprocessText(text)),
		}, nil
	}

	return Decoded{}, fmt.Errorf("%w: %w", ErrDecodeFailed, errors.Join(errs...))
}

var spaceRunRe = regexp.MustCompile(`[ \t\x{00A0}]+`)

// preprocessText normalizes whitespace inside lines. Line count and order are
// those of the decoder output, so finding line numbers point at decoded lines.
// Page breaks (\f) follow a row's newline and are dropped.
func (p *PDFProcessor) preprocessText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\f", "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// RowBackend rebuilds lines from the positioned text rows of each page
type RowBackend struct{}

func (RowBackend) Name() string { return "pdf-rows" }

func (RowBackend) Decode(ra io.ReaderAt, size int64) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("failed to read rows of page %d: %w", i, err)
		}

		for _, row := range rows {
			b.WriteString(joinRow(row.Content))
			b.WriteByte('\n')
		}
		b.WriteByte('\f')
	}

	return b.String(), nil
}

// joinRow orders the fragments of a row left to right and restores word gaps
func joinRow(content pdf.TextHorizontal) string {
	texts := make([]pdf.Text, len(content))
	copy(texts, content)
	sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

	var b strings.Builder
	var prevEnd float64
	for i, t := range texts {
		if i > 0 {
			gap := t.X - prevEnd
			threshold := t.FontSize * 0.15
			if threshold < 1 {
				threshold = 1
			}
			if gap > threshold && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
	}

	return b.String()
}

// PlainTextBackend uses the reader's plain text extraction
type PlainTextBackend struct{}

func (PlainTextBackend) Name() string { return "pdf-plain" }

func (PlainTextBackend) Decode(ra io.ReaderAt, size int64) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var buf bytes.Buffer
	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract plain text: %w", err)
	}

	_, err = buf.ReadFrom(b)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}

	return buf.String(), nil
}

// UTF8TextBackend accepts documents that are already plain UTF-8 text
type UTF8TextBackend struct{}

func (UTF8TextBackend) Name() string { return "utf8-text" }

func (UTF8TextBackend) Decode(ra io.ReaderAt, size int64) (string, error) {
	data := make([]byte, size)
	if _, err := ra.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read text: %w", err)
	}

	if bytes.HasPrefix(data, []byte("%PDF")) {
		return "", errors.New("input is a PDF")
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", errors.New("input is not UTF-8 text")
	}

	return string(data), nil
}
