package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"medical-triage/handler"
	"medical-triage/internal/domain"
	"medical-triage/internal/integrations/elevenlabs"
	"medical-triage/internal/integrations/gemini"
	"medical-triage/internal/integrations/openai"
	"medical-triage/internal/integrations/paramstore"
	"medical-triage/internal/observability"
	"medical-triage/internal/repository"
	"medical-triage/internal/usecase"
)

const metricsNamespace = "triage"

// Service is the wired triage stack shared by the Lambda and HTTP binaries.
type Service struct {
	Handler *handler.Handler
	Metrics *observability.Metrics
}

// Build wires the stack against real AWS clients.
func Build(ctx context.Context, cfg Config) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}

	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}

	var rules usecase.RuleLoader
	if cfg.RulesTable != "" {
		rc, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.RulesTable, cfg.Ruleset)
		if err != nil {
			return nil, fmt.Errorf("app: create rules client: %w", err)
		}
		rules = rc
	}
	return build(cfg, params, rules)
}

func build(cfg Config, params paramstore.Getter, rules usecase.RuleLoader) (*Service, error) {
	gen, err := newGenerator(cfg, params)
	if err != nil {
		return nil, err
	}

	ttsKey, err := paramstore.NewSecret(params, cfg.ParamPrefix+"/elevenlabs-token")
	if err != nil {
		return nil, fmt.Errorf("app: elevenlabs secret: %w", err)
	}
	tts, err := elevenlabs.NewClient(ttsKey)
	if err != nil {
		return nil, fmt.Errorf("app: create elevenlabs client: %w", err)
	}

	metrics := observability.NewMetrics(metricsNamespace)
	opts := []usecase.Option{
		usecase.WithObserver(metrics),
		usecase.WithLimits(cfg.MaxUserText, cfg.MaxHistory),
	}
	if rules != nil {
		opts = append(opts, usecase.WithRuleLoader(rules))
	}

	svc, err := usecase.NewTriageService(gen, tts, domain.VoiceConfig{
		VoiceID:         cfg.VoiceID,
		ModelID:         cfg.VoiceModelID,
		Stability:       0.5,
		SimilarityBoost: 0.5,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: create triage service: %w", err)
	}

	h, err := handler.NewHandler(svc)
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return &Service{Handler: h, Metrics: metrics}, nil
}

func newGenerator(cfg Config, params paramstore.Getter) (usecase.Generator, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		key, err := paramstore.NewSecret(params, cfg.ParamPrefix+"/open-ai-token")
		if err != nil {
			return nil, fmt.Errorf("app: openai secret: %w", err)
		}
		return openai.NewClient(key, openai.WithModel(cfg.GenerationModel), openai.WithTemperature(cfg.Temperature))
	default:
		key, err := paramstore.NewSecret(params, cfg.ParamPrefix+"/gemini-token")
		if err != nil {
			return nil, fmt.Errorf("app: gemini secret: %w", err)
		}
		return gemini.NewClient(key, gemini.WithModel(cfg.GenerationModel), gemini.WithTemperature(cfg.Temperature))
	}
}
