package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codehelper/internal/util"
	"codehelper/pkg/ai"
)

const (
	defaultGenerationTimeout = 60 * time.Second
	defaultLanguage          = "python"

	unavailablePrefix = "I apologize, but the AI service is currently unavailable."
)

// Outcome classifies a finished gateway call for usage accounting.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeRejected Outcome = "rejected"
)

// UsageRecorder receives one event per gateway call. Implementations must not
// block the request for long and must swallow their own errors.
type UsageRecorder interface {
	Record(ctx context.Context, kind TaskKind, outcome Outcome)
}

// Config holds runtime configuration for the gateway.
type Config struct {
	Generator         ai.TextGenerator
	GenerationTimeout time.Duration
	DefaultLanguage   string
	Usage             UsageRecorder
}

// App builds prompts for task requests and relays them to the generation
// backend. It holds no per-request state and is safe for concurrent use.
type App struct {
	generator       ai.TextGenerator
	timeout         time.Duration
	defaultLanguage string
	usage           UsageRecorder
}

// New constructs the gateway around a configured generator.
func New(cfg Config) (*App, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator required")
	}
	timeout := cfg.GenerationTimeout
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	language := strings.TrimSpace(cfg.DefaultLanguage)
	if language == "" {
		language = defaultLanguage
	}
	return &App{
		generator:       cfg.Generator,
		timeout:         timeout,
		defaultLanguage: language,
		usage:           cfg.Usage,
	}, nil
}

// Explain asks the backend to explain code.
func (a *App) Explain(ctx context.Context, req TaskRequest) (Envelope, error) {
	req.Kind = KindExplain
	return a.RunTask(ctx, req)
}

// Debug asks the backend to find problems in code.
func (a *App) Debug(ctx context.Context, req TaskRequest) (Envelope, error) {
	req.Kind = KindDebug
	return a.RunTask(ctx, req)
}

// Translate asks the backend to translate code into req.Language.
func (a *App) Translate(ctx context.Context, req TaskRequest) (Envelope, error) {
	req.Kind = KindTranslate
	return a.RunTask(ctx, req)
}

// Optimize asks the backend to optimize code.
func (a *App) Optimize(ctx context.Context, req TaskRequest) (Envelope, error) {
	req.Kind = KindOptimize
	return a.RunTask(ctx, req)
}

// ExplainConcept asks the backend to explain a concept at a level.
func (a *App) ExplainConcept(ctx context.Context, req ConceptRequest) (Envelope, error) {
	return a.dispatch(ctx, KindExplainConcept, func() (string, error) {
		return buildConceptPrompt(req)
	})
}

// RunTask dispatches a code task according to req.Kind.
func (a *App) RunTask(ctx context.Context, req TaskRequest) (Envelope, error) {
	return a.dispatch(ctx, req.Kind, func() (string, error) {
		return buildCodePrompt(req, a.defaultLanguage)
	})
}

// dispatch validates and builds the prompt, performs exactly one backend
// call and folds every non-input failure into a failed Envelope.
func (a *App) dispatch(ctx context.Context, kind TaskKind, build func() (string, error)) (env Envelope, err error) {
	logger := util.LoggerFromContext(ctx).With("task", string(kind))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task dispatch panic", "panic", fmt.Sprint(r))
			env, err = Failed(unavailablePrefix), nil
		}
		a.record(ctx, kind, env, err)
	}()

	prompt, err := build()
	if err != nil {
		return Envelope{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()
	text, err := a.generator.GenerateText(callCtx, prompt)
	if err != nil {
		logger.Warn("generation failed", "err", err, "duration_ms", time.Since(start).Milliseconds())
		return Failed(failureMessage(err)), nil
	}
	if strings.TrimSpace(text) == "" {
		logger.Warn("generation returned empty text")
		return Failed(unavailablePrefix + " Error: empty response"), nil
	}
	logger.Debug("generation succeeded", "duration_ms", time.Since(start).Milliseconds())
	return Succeeded(kind.OutputField(), text), nil
}

func (a *App) record(ctx context.Context, kind TaskKind, env Envelope, err error) {
	if a.usage == nil {
		return
	}
	outcome := OutcomeFailure
	switch {
	case err != nil:
		outcome = OutcomeRejected
	case env.Success():
		outcome = OutcomeSuccess
	}
	a.usage.Record(ctx, kind, outcome)
}

// failureMessage exposes only adapter-sanitized detail to callers.
func failureMessage(err error) string {
	var genErr *ai.GenerationError
	if errors.As(err, &genErr) && genErr.Message != "" {
		return unavailablePrefix + " Error: " + genErr.Message
	}
	return unavailablePrefix
}
