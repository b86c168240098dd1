// Package assist contains the text-generation application services.
package assist

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/assist"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/infrastructure/llm"
	"github.com/threatalytics/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// GenerationResult is the output of one assist capability call
type GenerationResult struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// AssistService runs the prompt-driven generation capabilities. Each
// capability is a configured prompt plus sampling settings; the service
// itself has no per-capability branches beyond picking the prompt.
type AssistService struct {
	client       llm.Client
	prompts      *config.PromptsConfig
	llmCfg       *config.LLMConfig
	activityRepo assist.ActivityRepository
	metrics      *telemetry.ServiceMetrics
	logger       *zap.Logger
}

// AssistServiceConfig bundles AssistService dependencies
type AssistServiceConfig struct {
	Client       llm.Client
	Prompts      *config.PromptsConfig
	LLM          *config.LLMConfig
	ActivityRepo assist.ActivityRepository
	Metrics      *telemetry.ServiceMetrics
	Logger       *zap.Logger
}

// NewAssistService creates a new AssistService
func NewAssistService(cfg AssistServiceConfig) *AssistService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistService{
		client:       cfg.Client,
		prompts:      cfg.Prompts,
		llmCfg:       cfg.LLM,
		activityRepo: cfg.ActivityRepo,
		metrics:      cfg.Metrics,
		logger:       logger,
	}
}

// Analyze assesses a description of concerning behavior
func (s *AssistService) Analyze(ctx context.Context, tenantID uuid.UUID, input string) (*GenerationResult, error) {
	return s.generate(ctx, tenantID, "analyze", s.prompts.Analyze, input)
}

// Redact strips personally identifying information from text
func (s *AssistService) Redact(ctx context.Context, tenantID uuid.UUID, input string) (*GenerationResult, error) {
	return s.generate(ctx, tenantID, "redact", s.prompts.Redact, input)
}

// Report drafts a formal assessment report from case notes
func (s *AssistService) Report(ctx context.Context, tenantID uuid.UUID, input string) (*GenerationResult, error) {
	return s.generate(ctx, tenantID, "report", s.prompts.Report, input)
}

// Drill generates a tabletop exercise script from scenario parameters
func (s *AssistService) Drill(ctx context.Context, tenantID uuid.UUID, input string) (*GenerationResult, error) {
	return s.generate(ctx, tenantID, "drill", s.prompts.Drill, input)
}

// Demo runs a truncated, unauthenticated analysis. It writes no activity
// entry since there is no tenant to attribute it to.
func (s *AssistService) Demo(ctx context.Context, input string) (*GenerationResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, shared.NewDomainError("EMPTY_INPUT", "Input text cannot be empty")
	}

	result, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      s.prompts.Analyze.System,
		Messages:    []llm.Message{{Role: "user", Content: input}},
		MaxTokens:   s.llmCfg.DemoMaxTokens,
		Temperature: s.prompts.Analyze.Temperature,
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration(ctx, "demo", result.Model, result.PromptTokens, result.CompletionTokens)
	}
	return &GenerationResult{
		Content:          result.Content,
		Model:            result.Model,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}, nil
}

func (s *AssistService) generate(ctx context.Context, tenantID uuid.UUID, capability string, prompt config.PromptConfig, input string) (*GenerationResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, shared.NewDomainError("EMPTY_INPUT", "Input text cannot be empty")
	}

	result, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      prompt.System,
		Messages:    []llm.Message{{Role: "user", Content: input}},
		MaxTokens:   prompt.MaxTokens,
		Temperature: prompt.Temperature,
	})
	if err != nil {
		s.logger.Error("Generation failed",
			zap.String("capability", capability),
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration(ctx, capability, result.Model, result.PromptTokens, result.CompletionTokens)
	}

	// The activity log is best effort; a write failure never fails the call
	if s.activityRepo != nil {
		if entry, err := assist.NewActivityEntry(tenantID, capability, summarize(input)); err == nil {
			if err := s.activityRepo.Save(ctx, entry); err != nil {
				s.logger.Warn("Failed to record activity entry",
					zap.String("capability", capability), zap.Error(err))
			}
		}
	}

	return &GenerationResult{
		Content:          result.Content,
		Model:            result.Model,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}, nil
}

// summarize trims an input down to an activity-log line
func summarize(input string) string {
	if i := strings.IndexByte(input, '\n'); i >= 0 {
		input = input[:i]
	}
	const max = 120
	if len(input) > max {
		return input[:max] + "…"
	}
	return input
}
