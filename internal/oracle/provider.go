package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
)

// DefaultEndpoint is the hosted generative-language API base URL.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Provider is the transport-level interface to one reasoning service.
// The client layers model fallback on top of it.
type Provider interface {
	// Generate invokes one model with a system instruction and user
	// prompt, returning the raw response text. When structured is true
	// the provider requests a JSON-constrained response mode if the
	// service supports one.
	Generate(ctx context.Context, model, systemInstruction, userPrompt string, structured bool) (string, error)
}

// GeminiProvider implements Provider against the generateContent REST API.
type GeminiProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewGeminiProvider creates a provider. An empty endpoint selects the
// hosted API; timeout 0 disables the transport-level timeout so the
// caller's context governs.
func NewGeminiProvider(apiKey, endpoint string, timeout time.Duration) *GeminiProvider {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &GeminiProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Request/response shapes for the generateContent API. Only the fields
// this agent uses are declared.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	SystemInstruction *geminiContent    `json:"system_instruction,omitempty"`
	Contents          []geminiContent   `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements Provider.
func (p *GeminiProvider) Generate(ctx context.Context, model, systemInstruction, userPrompt string, structured bool) (string, error) {
	reqBody := generateRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
	}
	if structured {
		reqBody.GenerationConfig = &generationConfig{ResponseMIMEType: "application/json"}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.endpoint, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("model %q: %w", model, tberrors.ErrModelNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		// The error body may still identify an unknown model.
		var parsed generateResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil && parsed.Error.Status == "NOT_FOUND" {
			return "", fmt.Errorf("model %q: %w", model, tberrors.ErrModelNotFound)
		}
		return "", fmt.Errorf("oracle API error %d: %s", resp.StatusCode, truncateAPIError(respBody))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w: %v", tberrors.ErrOracleMalformed, err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty candidate list: %w", tberrors.ErrOracleMalformed)
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("candidate carried no text: %w", tberrors.ErrOracleMalformed)
	}

	return text, nil
}

// truncateAPIError limits API error bodies in diagnostics so a large or
// sensitive payload never reaches logs wholesale.
func truncateAPIError(body []byte) string {
	const maxLen = 512
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "... (truncated)"
}
