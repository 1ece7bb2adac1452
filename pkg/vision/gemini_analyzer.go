package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"city-inspect-be/internal/constant"
)

// GeminiAnalyzer calls the Gemini generateContent endpoint. Image input
// is passed inline (base64 data URI) or as a fetchable URL the caller
// already converted. Keys rotate through a Keyring.
type GeminiAnalyzer struct {
	Model   string
	keyring *Keyring
	client  *http.Client
}

func NewGeminiAnalyzer(apiKeys []string, model string, timeout time.Duration) *GeminiAnalyzer {
	if model == "" {
		model = "gemini-2.5-pro"
	}
	return &GeminiAnalyzer{
		Model:   model,
		keyring: NewKeyring(apiKeys, 5*time.Minute),
		client:  &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiAnalyzer) Name() string {
	return g.Model
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, image string, prompt string, structured bool) (string, error) {
	if prompt == "" {
		prompt = constant.SimpleDescriptionPrompt
	}
	parts := []geminiPart{{Text: prompt}}

	if mime, data, ok := splitDataURI(image); ok {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: data}})
	} else {
		// URL input: the model is asked to fetch it from the prompt.
		parts[0].Text = fmt.Sprintf("%s\n\n图片地址: %s", prompt, image)
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: parts, Role: "user"}},
	}
	if structured {
		payload.GenerationConfig = &geminiGenerationConfig{ResponseMimeType: "application/json"}
	}

	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	apiKey, err := g.keyring.Acquire()
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:generateContent",
		g.Model,
	)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payloadJson))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		g.keyring.Report(apiKey, false)
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		g.keyring.Report(apiKey, false)
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		g.keyring.Report(apiKey, res.StatusCode != http.StatusTooManyRequests)
		return "", fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}
	g.keyring.Report(apiKey, true)

	var geminiRes geminiResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", err
	}
	if len(geminiRes.Candidates) == 0 || len(geminiRes.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini vision response contained no candidates")
	}

	analysis := geminiRes.Candidates[0].Content.Parts[0].Text
	if structured {
		analysis = RenderStructured(analysis)
	}
	return analysis, nil
}

// splitDataURI splits "data:image/png;base64,AAAA" into mime type and
// payload. Returns ok=false for anything else.
func splitDataURI(input string) (mime string, data string, ok bool) {
	if !strings.HasPrefix(input, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(input, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", "", false
	}
	return rest[:sep], rest[sep+len(";base64,"):], true
}
