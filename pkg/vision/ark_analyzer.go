package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"city-inspect-be/internal/constant"
)

// ArkAnalyzer calls a Volcengine Ark vision model through the
// OpenAI-compatible chat completions endpoint with an image_url part.
type ArkAnalyzer struct {
	ApiKey  string
	BaseURL string
	Model   string
	client  *http.Client
}

func NewArkAnalyzer(apiKey, baseURL, model string, timeout time.Duration) *ArkAnalyzer {
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	return &ArkAnalyzer{
		ApiKey:  apiKey,
		BaseURL: baseURL,
		Model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type arkContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *arkImageURL `json:"image_url,omitempty"`
}

type arkImageURL struct {
	URL string `json:"url"`
}

type arkChatMessage struct {
	Role    string           `json:"role"`
	Content []arkContentPart `json:"content"`
}

type arkChatRequest struct {
	Model          string             `json:"model"`
	Messages       []arkChatMessage   `json:"messages"`
	ResponseFormat *arkResponseFormat `json:"response_format,omitempty"`
}

type arkResponseFormat struct {
	Type string `json:"type"`
}

type arkChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *ArkAnalyzer) Name() string {
	return a.Model
}

func (a *ArkAnalyzer) Analyze(ctx context.Context, image string, prompt string, structured bool) (string, error) {
	if prompt == "" {
		prompt = constant.SimpleDescriptionPrompt
	}
	payload := arkChatRequest{
		Model: a.Model,
		Messages: []arkChatMessage{
			{
				Role: "user",
				Content: []arkContentPart{
					{Type: "image_url", ImageURL: &arkImageURL{URL: image}},
					{Type: "text", Text: prompt},
				},
			},
		},
	}
	if structured {
		payload.ResponseFormat = &arkResponseFormat{Type: "json_object"}
	}

	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", a.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payloadJson))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}

	var chatRes arkChatResponse
	if err := json.Unmarshal(resBody, &chatRes); err != nil {
		return "", err
	}
	if len(chatRes.Choices) == 0 {
		return "", fmt.Errorf("ark vision response contained no choices")
	}

	analysis := chatRes.Choices[0].Message.Content
	if structured {
		analysis = RenderStructured(analysis)
	}
	return analysis, nil
}
