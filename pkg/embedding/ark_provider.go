package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"city-inspect-be/pkg/store"
)

// ArkProvider calls the Volcengine Ark multimodal embedding endpoint
// (doubao-embedding-vision). One model serves both modalities, so text
// and image vectors share an embedding space.
type ArkProvider struct {
	ApiKey  string
	BaseURL string
	Model   string
	client  *http.Client
}

func NewArkProvider(apiKey, baseURL, model string, timeout time.Duration) EmbeddingProvider {
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}
	if model == "" {
		model = "doubao-embedding-vision-241215"
	}
	return &ArkProvider{
		ApiKey:  apiKey,
		BaseURL: baseURL,
		Model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type arkEmbeddingInput struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	ImageURL *arkImageURLPart `json:"image_url,omitempty"`
}

type arkImageURLPart struct {
	URL string `json:"url"`
}

type arkEmbeddingRequest struct {
	Model          string              `json:"model"`
	Input          []arkEmbeddingInput `json:"input"`
	EncodingFormat string              `json:"encoding_format"`
}

type arkEmbeddingResponse struct {
	Data struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *ArkProvider) EmbedText(ctx context.Context, text string) (*Vector, error) {
	input := []arkEmbeddingInput{{Type: "text", Text: text}}
	values, err := p.embed(ctx, input)
	if err != nil {
		return nil, err
	}
	return &Vector{Values: values, Modality: store.ModalityText}, nil
}

func (p *ArkProvider) EmbedImage(ctx context.Context, image string) (*Vector, error) {
	input := []arkEmbeddingInput{{Type: "image_url", ImageURL: &arkImageURLPart{URL: image}}}
	values, err := p.embed(ctx, input)
	if err != nil {
		return nil, err
	}
	return &Vector{Values: values, Modality: store.ModalityImage, Source: image}, nil
}

func (p *ArkProvider) embed(ctx context.Context, input []arkEmbeddingInput) ([]float32, error) {
	reqBody := arkEmbeddingRequest{
		Model:          p.Model,
		Input:          input,
		EncodingFormat: "float",
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/embeddings/multimodal", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ark embedding error, code %d, body %s", res.StatusCode, string(resByte))
	}

	var arkRes arkEmbeddingResponse
	if err := json.Unmarshal(resByte, &arkRes); err != nil {
		return nil, err
	}
	if len(arkRes.Data.Embedding) == 0 {
		return nil, fmt.Errorf("ark embedding response contained no vector")
	}

	return arkRes.Data.Embedding, nil
}
