// Package embed turns text into fixed-length vectors and holds the vector
// math shared by deduplication, search and recommendation.
package embed

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"newspulse/internal/metrics"
	"newspulse/internal/ratelimit"
	"newspulse/internal/retry"
)

// Provider converts text into fixed-length numeric vectors. Implementations
// must be safe for concurrent use; the engine calls Encode from fetch and
// query paths without locking.
type Provider interface {
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}

// GeminiProvider encodes text with the Gemini embedding API.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	limiter *ratelimit.Limiter
	retry   retry.Config
}

var _ Provider = (*GeminiProvider)(nil)

func NewGeminiProvider(ctx context.Context, apiKey, model string, limiter *ratelimit.Limiter, retryCfg retry.Config) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   model,
		limiter: limiter,
		retry:   retryCfg,
	}, nil
}

func (p *GeminiProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

// Encode embeds a batch of texts in a single API call. The returned slice is
// parallel to texts.
func (p *GeminiProvider) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if p.limiter != nil && !p.limiter.Allow() {
		return nil, fmt.Errorf("embedding request budget exhausted")
	}

	em := p.client.EmbeddingModel(p.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	var res *genai.BatchEmbedContentsResponse
	err := retry.Do(ctx, p.retry, func() error {
		metrics.Global.IncrementEmbeddingCalls()
		var callErr error
		res, callErr = em.BatchEmbedContents(ctx, batch)
		return callErr
	})
	if err != nil {
		metrics.Global.IncrementEmbeddingFailures()
		return nil, fmt.Errorf("batch embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("batch embed: got %d vectors for %d texts", len(res.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(res.Embeddings))
	for i, e := range res.Embeddings {
		vec := make([]float64, len(e.Values))
		for j, v := range e.Values {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
