package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/metrics"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/utils"
)

var (
	// ErrUpstream marks a failed call to the model provider.
	ErrUpstream = errors.New("upstream generation failed")
	// ErrParse marks a response that is not valid JSON.
	ErrParse = errors.New("response is not valid json")
	// ErrInvalid marks a JSON response that does not match the expected shape.
	ErrInvalid = errors.New("response does not match schema")
	// ErrEmpty marks a well-formed response without any scholarships.
	ErrEmpty = errors.New("response contains no scholarships")
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// Matcher turns a profile into a MatchResult using Gemini. It never fails:
// any problem resolves to scholarship.Fallback().
type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	now       func() time.Time
}

//go:embed prompt.md
var promptTemplate string

//go:embed system.md
var systemInstruction string

//go:embed schema.json
var responseSchema string

var responseSchemaLoader = gojsonschema.NewStringLoader(responseSchema)

const defaultMaxLogLength = 200

func NewMatcher(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
		now:       time.Now,
	}
}

// Generate asks the model for scholarships matching profile. One request is
// made per call; the returned result always holds 1-5 matches.
func (m *Matcher) Generate(ctx context.Context, profile scholarship.Profile) *scholarship.MatchResult {
	started := m.now()

	result, err := m.generate(ctx, profile)
	outcome := "ok"
	if err != nil {
		outcome = failureKind(err)
		m.logger.Warn("falling back to consultation result",
			zap.String("failure_kind", outcome),
			zap.Strings("target_countries", profile.TargetCountries),
			zap.Error(err),
		)
		result = scholarship.Fallback()
	}

	metrics.GenerationTotal.WithLabelValues(outcome).Inc()
	metrics.GenerationDuration.WithLabelValues(outcome).Observe(m.now().Sub(started).Seconds())

	return result
}

func (m *Matcher) generate(ctx context.Context, profile scholarship.Profile) (*scholarship.MatchResult, error) {
	if m.generator == nil {
		return nil, fmt.Errorf("%w: generator is not configured", ErrUpstream)
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshal profile: %v", ErrUpstream, err)
	}

	prompt := buildPrompt(string(profileJSON), m.now())

	m.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	m.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	result, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if result.Len() > scholarship.MaxMatches {
		m.logger.Debug("truncating scholarships",
			zap.Int("received", result.Len()),
			zap.Int("kept", scholarship.MaxMatches),
		)
	}
	result.Normalize()

	return result, nil
}

func buildPrompt(profileJSON string, now time.Time) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Current date: {{CURRENT_DATE}}\n\nProfile:\n{{PROFILE_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{PROFILE_JSON}}", profileJSON)
	prompt = strings.ReplaceAll(prompt, "{{CURRENT_DATE}}", now.Format(time.DateOnly))
	return prompt
}

// parseResponse strips code fences, validates the payload and decodes it.
// Order and values are kept as received.
func parseResponse(raw string) (*scholarship.MatchResult, error) {
	cleaned := extractJSON(raw)

	var data any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	validation, err := gojsonschema.Validate(responseSchemaLoader, gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !validation.Valid() {
		details := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(details, "; "))
	}

	var result scholarship.MatchResult
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: clampScoreHook,
		Result:     &result,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if result.Len() == 0 {
		return nil, ErrEmpty
	}

	return &result, nil
}

// clampScoreHook bounds JSON numbers headed for int fields while they are
// still float64. The only int fields of a MatchResult are scores.
func clampScoreHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 || to.Kind() != reflect.Int {
		return data, nil
	}
	return scholarship.ClampScoreFloat(data.(float64)), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	case errors.Is(err, ErrEmpty):
		return "empty"
	default:
		return "upstream"
	}
}
