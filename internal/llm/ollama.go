package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rt0111/onayformukontrol/internal/amount"
	"github.com/rt0111/onayformukontrol/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// maxPromptFindings bounds the findings quoted in the prompt
const maxPromptFindings = 15

// OllamaLLM writes narrative summaries of analysis results with an Ollama model
type OllamaLLM struct {
	Client  *api.Client
	Model   string
	Timeout time.Duration
}

// NewOllamaLLM creates a new Ollama LLM client. An empty host uses
// OLLAMA_HOST or the Ollama default.
func NewOllamaLLM(host string, model string, timeout time.Duration) (*OllamaLLM, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaLLM{
		Client:  client,
		Model:   model,
		Timeout: timeout,
	}, nil
}

// GeneratePrompt creates the prompt for a result. Only extracted facts are
// passed; the model is asked not to add anything else.
func (o *OllamaLLM) GeneratePrompt(result *models.AnalysisResult) string {
	var promptBuilder strings.Builder

	// System instruction
	promptBuilder.WriteString("Sen bir satınalma onay formu denetçisisin. ")
	promptBuilder.WriteString("Aşağıdaki analiz bulgularını Türkçe, en fazla iki paragrafta özetle. ")
	promptBuilder.WriteString("Yalnızca verilen bilgileri kullan, tutar veya yetki uydurma.\n\n")

	s := result.Summary
	promptBuilder.WriteString("Özet bilgiler:\n")
	if v, ok := s.Supplier.Get(); ok {
		fmt.Fprintf(&promptBuilder, "- Tedarikçi: %s\n", v)
	}
	if v, ok := s.AcceptedOffer.Get(); ok {
		fmt.Fprintf(&promptBuilder, "- Kabul edilen teklif: %s\n", v)
	}
	if v, ok := s.TotalValue.Get(); ok {
		fmt.Fprintf(&promptBuilder, "- Toplam değer: %s %s\n", amount.FormatTR(v), s.Currency)
	}
	if v, ok := s.PurchaseType.Get(); ok {
		fmt.Fprintf(&promptBuilder, "- Alım tipi: %s\n", v)
	}
	if v, ok := s.ContractMonths.Get(); ok {
		fmt.Fprintf(&promptBuilder, "- Sözleşme süresi: %d ay\n", v)
	}
	if v, ok := result.ResolvedAuthority.Get(); ok {
		fmt.Fprintf(&promptBuilder, "- Eşik tablosuna göre onay yetkisi: %s\n", v)
	}
	if a := result.Approval; a != nil {
		fmt.Fprintf(&promptBuilder, "- Onay yapısı: %s (%s)\n", a.Authority, a.Reason)
	}
	fmt.Fprintf(&promptBuilder, "- Genel risk seviyesi: %s\n\n", result.RiskLevel.Label())

	promptBuilder.WriteString("Risk bulguları:\n")
	written := 0
	for _, f := range result.Findings {
		if f.Negated {
			continue
		}
		if written == maxPromptFindings {
			promptBuilder.WriteString("- ...\n")
			break
		}
		fmt.Fprintf(&promptBuilder, "- [%s, %s, satır %d] %s\n", f.Category.Label(), f.Level.Label(), f.Line, f.Sentence)
		written++
	}
	if written == 0 {
		promptBuilder.WriteString("- Risk bulgusu yok\n")
	}

	promptBuilder.WriteString("\nDeğerlendirme: ")

	return promptBuilder.String()
}

// GenerateResponse generates a response from the LLM
func (o *OllamaLLM) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": 0.1,
			"num_predict": 512,
		},
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	var responseBuilder strings.Builder

	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return strings.TrimSpace(responseBuilder.String()), nil
}

// Narrate writes a short narrative for the result
func (o *OllamaLLM) Narrate(ctx context.Context, result *models.AnalysisResult) (string, error) {
	prompt := o.GeneratePrompt(result)

	narrative, err := o.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate narrative: %w", err)
	}

	return narrative, nil
}
