package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.3
	defaultTimeout     = 60 * time.Second
	jsonMIMEType       = "application/json"
)

// modelsAPI is the subset of genai.Models used by the generator.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeneratorOptions tunes a single generation request.
type GeneratorOptions struct {
	Model       string
	Temperature float32
	// JSONMode asks the model for an application/json response.
	JSONMode bool
	// SearchGrounding enables the Google Search tool.
	SearchGrounding bool
	Timeout         time.Duration
}

// DefaultGeneratorOptions returns options for low-temperature, JSON, grounded output.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Model:           defaultModel,
		Temperature:     defaultTemperature,
		JSONMode:        true,
		SearchGrounding: true,
		Timeout:         defaultTimeout,
	}
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models modelsAPI
	opts   GeneratorOptions
	logger *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, opts GeneratorOptions, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts, logger), nil
}

func newGenerator(models modelsAPI, opts GeneratorOptions, logger *zap.Logger) *Generator {
	if opts.Model = strings.TrimSpace(opts.Model); opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{models: models, opts: opts, logger: logger}
}

// GenerateContent sends the prompt to Gemini once and returns the joined textual response.
// The request runs under the generator timeout and ignores cancellation of ctx.
func (g *Generator) GenerateContent(ctx context.Context, systemInstruction, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.Timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.opts.Model, genai.Text(prompt), g.config(systemInstruction))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		// The first candidate with content is the answer.
		if builder.Len() > 0 {
			break
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func (g *Generator) config(systemInstruction string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.opts.Temperature),
	}

	if systemInstruction = strings.TrimSpace(systemInstruction); systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	if g.opts.JSONMode {
		cfg.ResponseMIMEType = jsonMIMEType
	}

	if g.opts.SearchGrounding {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	return cfg
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.opts.Model
}
