// Package cortex implements the operator chat session: durable message
// threads, system prompt assembly from live configuration, and the event
// stream surfaced while a request is in flight.
package cortex

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cortexchat/internal/ai"
	"cortexchat/internal/config"
	"cortexchat/internal/history"
	"cortexchat/internal/models"

	"github.com/cloudwego/eino/components/tool"
)

const (
	// historyLimit bounds the rows loaded per turn, counting the inbound
	// turn that is dropped before the engine call.
	historyLimit = 100
	// maxAgentSteps caps the react agent's tool loop per completion.
	maxAgentSteps = 50

	errorPrefix = "Cortex chat error: "
)

// Engine is the slice of the completion engine the session drives.
type Engine interface {
	Generate(ctx context.Context, prior []*models.ChatMessage, prompt string) (string, error)
}

// EngineFactory builds the request-scoped engine. Swappable in tests.
type EngineFactory func(ctx context.Context, cfg ai.EngineConfig) (Engine, error)

func defaultEngineFactory(ctx context.Context, cfg ai.EngineConfig) (Engine, error) {
	return ai.NewEngine(ctx, cfg)
}

// Session is the persistent chat session between the operator and the
// cortex. One instance lives for the whole process; a mutex serializes
// requests so concurrent sends queue instead of interleaving.
type Session struct {
	cfg       *config.Live
	store     *Store
	history   *history.Service
	cache     TranscriptCache
	tools     []tool.BaseTool
	newEngine EngineFactory
	mu        sync.Mutex
}

// NewSession wires the session. cache may be nil (transcript caching off);
// factory nil selects the real engine.
func NewSession(cfg *config.Live, store *Store, hist *history.Service, cache TranscriptCache, tools []tool.BaseTool, factory EngineFactory) *Session {
	if factory == nil {
		factory = defaultEngineFactory
	}
	return &Session{
		cfg:       cfg,
		store:     store,
		history:   hist,
		cache:     cache,
		tools:     tools,
		newEngine: factory,
	}
}

// Store exposes the message store for read-side handlers.
func (s *Session) Store() *Store {
	return s.store
}

// SendMessage runs one chat turn: persist the inbound user turn, assemble
// the system prompt, complete against prior history, persist the outcome.
// Engine failures are recorded as an assistant turn carrying the error text
// and then surfaced with that same text.
func (s *Session) SendMessage(ctx context.Context, threadID, userText, channelContextID string, sink EventSink) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emit(sink, ThinkingEvent())

	if _, err := s.store.SaveMessage(ctx, threadID, models.RoleUser, userText, channelContextID); err != nil {
		return "", err
	}

	systemPrompt := s.buildSystemPrompt(ctx, channelContextID)

	rows, err := s.store.LoadHistory(ctx, threadID, historyLimit)
	if err != nil {
		return "", err
	}
	// The just-persisted inbound turn goes to the engine as the prompt,
	// not as history.
	if n := len(rows); n > 0 {
		rows = rows[:n-1]
	}

	text, err := s.complete(ctx, systemPrompt, rows, userText, sink)
	if err != nil {
		errText := errorPrefix + err.Error()
		if _, saveErr := s.store.SaveMessage(ctx, threadID, models.RoleAssistant, errText, channelContextID); saveErr != nil {
			return "", fmt.Errorf("persist chat error turn: %w", saveErr)
		}
		return "", errors.New(errText)
	}

	if _, err := s.store.SaveMessage(ctx, threadID, models.RoleAssistant, text, channelContextID); err != nil {
		return "", err
	}
	return text, nil
}

func (s *Session) complete(ctx context.Context, systemPrompt string, prior []*models.ChatMessage, prompt string, sink EventSink) (string, error) {
	snap := s.cfg.Snapshot()
	provider, provCfg, err := snap.ActiveProvider()
	if err != nil {
		return "", err
	}

	tools := ai.ObserveTools(s.tools, ai.ToolObserver{
		OnStart: func(name string) {
			emit(sink, ToolStartedEvent(name))
		},
		OnEnd: func(name, preview string) {
			emit(sink, ToolCompletedEvent(name, preview))
		},
	})

	engine, err := s.newEngine(ctx, ai.EngineConfig{
		Provider:     provider,
		ProviderConf: provCfg,
		Model:        snap.ResolveModel(config.ProcessBranch),
		SystemPrompt: systemPrompt,
		MaxSteps:     maxAgentSteps,
		Tools:        tools,
	})
	if err != nil {
		return "", err
	}
	return engine.Generate(ctx, prior, prompt)
}
