package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/abhay1maurya/receipt-digitizer/internal/common"
)

// GeminiExtractor implements BillExtractor using Google Gemini. One call does
// both OCR and field extraction.
type GeminiExtractor struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	logger  *slog.Logger
}

func NewGeminiExtractor(ctx context.Context, cfg common.VisionConfig, logger *slog.Logger) (*GeminiExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(4096)
	model.ResponseMIMEType = "application/json"

	return &GeminiExtractor{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

func (g *GeminiExtractor) ExtractBill(ctx context.Context, image []byte, mimeType string) ([]byte, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	g.logger.Info("vision.extract.start", "mime_type", mimeType, "image_bytes", len(image))

	parts := []genai.Part{
		genai.Blob{MIMEType: mimeType, Data: image},
		genai.Text(BuildExtractionPrompt()),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		g.logger.Error("vision.extract.request_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: %v", ErrServiceFailure, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		g.logger.Error("vision.extract.empty_response", "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: empty response", ErrServiceFailure)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	g.logger.Info("vision.extract.done",
		"response_len", sb.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return []byte(sb.String()), nil
}

func (g *GeminiExtractor) Close() error {
	return g.client.Close()
}
