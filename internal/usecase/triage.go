package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"medical-triage/internal/domain"
	"medical-triage/internal/triage"
)

const (
	defaultMaxUserText = 4000
	defaultMaxHistory  = 100
	defaultRuleRetry   = 30 * time.Second
)

// Pipeline stages reported to the Observer.
const (
	StageValidating   = "validating"
	StageGenerating   = "generating"
	StageClassifying  = "classifying"
	StageSynthesizing = "synthesizing"

	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Generator produces the assistant reply for a composed prompt.
type Generator interface {
	Ready(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer renders text to audio.
type Synthesizer interface {
	Ready(ctx context.Context) error
	Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error)
}

// RuleLoader supplies the urgency rule table.
type RuleLoader interface {
	LoadRules(ctx context.Context) (triage.RuleTable, error)
}

// Observer receives per-stage outcomes and verdicts.
type Observer interface {
	ObserveStage(stage, outcome string, elapsed time.Duration)
	ObserveVerdict(language, verdict string)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, string, time.Duration) {}
func (nopObserver) ObserveVerdict(string, string)              {}

// TriageService runs one triage exchange per call. It keeps no conversation
// state; the caller passes the history in and gets the extended history back.
type TriageService struct {
	gen         Generator
	tts         Synthesizer
	voice       domain.VoiceConfig
	rules       RuleLoader
	observer    Observer
	maxUserText int
	maxHistory  int
	now         func() time.Time

	fallback  *triage.Classifier
	ruleRetry time.Duration

	cacheMu    sync.RWMutex
	classifier *triage.Classifier
	loading    bool
	retryAt    time.Time
}

type Option func(*TriageService)

// WithRuleLoader makes the service classify with rules from l instead of the
// built-in table.
func WithRuleLoader(l RuleLoader) Option {
	return func(s *TriageService) {
		s.rules = l
	}
}

func WithObserver(o Observer) Option {
	return func(s *TriageService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLimits bounds the accepted user text length (in characters) and history
// length. Non-positive values keep the defaults.
func WithLimits(maxUserText, maxHistory int) Option {
	return func(s *TriageService) {
		if maxUserText > 0 {
			s.maxUserText = maxUserText
		}
		if maxHistory > 0 {
			s.maxHistory = maxHistory
		}
	}
}

type TriageInput struct {
	UserText string
	History  []domain.ConversationTurn
}

type TriageOutput struct {
	Reply    string
	Advisory string
	Verdict  domain.Verdict
	Language domain.Language
	Audio    []byte
	History  []domain.ConversationTurn
}

func NewTriageService(gen Generator, tts Synthesizer, voice domain.VoiceConfig, opts ...Option) (*TriageService, error) {
	if gen == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if tts == nil {
		return nil, errors.New("usecase: synthesizer must not be nil")
	}
	s := &TriageService{
		gen:         gen,
		tts:         tts,
		voice:       voice,
		observer:    nopObserver{},
		maxUserText: defaultMaxUserText,
		maxHistory:  defaultMaxHistory,
		now:         time.Now,
		fallback:    triage.DefaultClassifier(),
		ruleRetry:   defaultRuleRetry,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rules == nil {
		s.classifier = s.fallback
	}
	return s, nil
}

// Triage validates the request, generates a reply, classifies its urgency
// and synthesizes the reply together with the advisory. Either every
// artifact is returned or only an error.
func (s *TriageService) Triage(ctx context.Context, in TriageInput) (TriageOutput, error) {
	started := s.now()
	classifier, err := s.validate(ctx, in)
	s.finishStage(StageValidating, started, err)
	if err != nil {
		return TriageOutput{}, err
	}

	started = s.now()
	reply, err := s.generate(ctx, composePrompt(in.UserText, in.History))
	s.finishStage(StageGenerating, started, err)
	if err != nil {
		return TriageOutput{}, err
	}

	started = s.now()
	lang := triage.DetectLanguage(reply)
	verdict := classifier.Classify(reply, lang)
	advisory := triage.Advisory(lang, verdict)
	s.finishStage(StageClassifying, started, nil)

	started = s.now()
	audio, err := s.synthesize(ctx, reply+"\n\n"+advisory)
	s.finishStage(StageSynthesizing, started, err)
	if err != nil {
		return TriageOutput{}, err
	}

	s.observer.ObserveVerdict(string(lang), verdict.String())
	return TriageOutput{
		Reply:    reply,
		Advisory: advisory,
		Verdict:  verdict,
		Language: lang,
		Audio:    audio,
		History:  domain.AppendExchange(in.History, in.UserText, reply),
	}, nil
}

func (s *TriageService) validate(ctx context.Context, in TriageInput) (*triage.Classifier, error) {
	text := strings.TrimSpace(in.UserText)
	if text == "" {
		return nil, newError(ErrorInvalidInput, "empty_user_text", nil)
	}
	if utf8.RuneCountInString(text) > s.maxUserText {
		return nil, newError(ErrorInvalidInput, "user_text_too_long", nil)
	}
	if len(in.History) > s.maxHistory {
		return nil, newError(ErrorInvalidInput, "history_too_long", nil)
	}
	for _, turn := range in.History {
		if !turn.Role.Valid() {
			return nil, newError(ErrorInvalidInput, "invalid_history_role", nil)
		}
	}

	if strings.TrimSpace(s.voice.VoiceID) == "" {
		return nil, newError(ErrorConfiguration, "missing_voice_id", nil)
	}
	if err := s.gen.Ready(ctx); err != nil {
		return nil, newError(ErrorConfiguration, "generation_credentials_unavailable", err)
	}
	if err := s.tts.Ready(ctx); err != nil {
		return nil, newError(ErrorConfiguration, "synthesis_credentials_unavailable", err)
	}
	return s.ensureClassifier(ctx), nil
}

// ensureClassifier returns the classifier built from the configured rules.
// Until they load, requests use the built-in rules. Only one request loads at
// a time and a failed load is not attempted again before ruleRetry elapses.
func (s *TriageService) ensureClassifier(ctx context.Context) *triage.Classifier {
	s.cacheMu.RLock()
	c := s.classifier
	s.cacheMu.RUnlock()
	if c != nil {
		return c
	}

	s.cacheMu.Lock()
	if s.classifier != nil {
		c = s.classifier
		s.cacheMu.Unlock()
		return c
	}
	if s.loading || s.now().Before(s.retryAt) {
		s.cacheMu.Unlock()
		return s.fallback
	}
	s.loading = true
	s.cacheMu.Unlock()

	c, err := s.loadClassifier(ctx)

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.loading = false
	if err != nil {
		s.retryAt = s.now().Add(s.ruleRetry)
		slog.Warn("urgency rules unavailable, using built-in rules", "err", err, "retry_at", s.retryAt)
		return s.fallback
	}
	s.classifier = c
	return c
}

func (s *TriageService) loadClassifier(ctx context.Context) (*triage.Classifier, error) {
	table, err := s.rules.LoadRules(ctx)
	if err != nil {
		return nil, err
	}
	return triage.NewClassifier(table)
}

func (s *TriageService) generate(ctx context.Context, prompt string) (string, error) {
	reply, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		if isRateLimited(err) {
			return "", newError(ErrorGeneration, "generation_rate_limited", err)
		}
		return "", newError(ErrorGeneration, "generation_error", err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", newError(ErrorGeneration, "generation_empty_response", nil)
	}
	return reply, nil
}

func (s *TriageService) synthesize(ctx context.Context, text string) ([]byte, error) {
	audio, err := s.tts.Synthesize(ctx, text, s.voice)
	if err != nil {
		if isRateLimited(err) {
			return nil, newError(ErrorSynthesis, "synthesis_rate_limited", err)
		}
		return nil, newError(ErrorSynthesis, "synthesis_error", err)
	}
	if len(audio) == 0 {
		return nil, newError(ErrorSynthesis, "synthesis_empty_audio", nil)
	}
	return audio, nil
}

func (s *TriageService) finishStage(stage string, started time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	s.observer.ObserveStage(stage, outcome, s.now().Sub(started))
}

func isRateLimited(err error) bool {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.HTTPStatusCode() == http.StatusTooManyRequests
}
