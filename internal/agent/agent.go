// Package agent runs the support conversation loop.
//
// The agent answers one customer message at a time: it retrieves FAQ
// context, assembles the bounded session history, and delegates the
// tool-calling loop to Genkit with a hard turn limit. Turns for the same
// session are serialized; failures degrade to fixed customer-safe
// messages instead of propagating to the chat platform.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/finchdesk/finch/internal/knowledge"
	"github.com/finchdesk/finch/internal/session"
)

const (
	// FallbackMessage is returned to the customer when generation fails
	// after retries. The underlying error is logged, never exposed.
	FallbackMessage = "I'm sorry, I ran into a problem while preparing your answer. Please try again in a moment."

	// NotReadyMessage is returned while the knowledge base is unavailable.
	NotReadyMessage = "I'm sorry, I'm not fully set up yet and can't answer questions right now. Please try again later."

	// ragRetrievalTimeout bounds FAQ context retrieval per request.
	// On timeout the agent degrades to answering without retrieved context.
	ragRetrievalTimeout = 5 * time.Second
)

// systemPrompt frames the model as the store's support agent.
const systemPrompt = `You are a customer support agent for an online electronics store.
Answer in the customer's language, briefly and politely.

Rules:
- Only answer from the provided FAQ passages and tool results. If a
  question is outside store matters, say so and offer a human handoff.
- Always call lookup_order before computing a refund or making any claim
  about cancellation eligibility. Only orders still being prepared can be
  cancelled.
- Confirm with the customer before calling cancel_order.
- If a tool reports an error, relay the reason to the customer. Never
  invent order details, prices, or policy.
- Do not apologize when the request can actually be fulfilled; just do it.`

// Sentinel errors for agent operations.
var (
	// ErrNotReady indicates the knowledge base failed to initialize.
	ErrNotReady = errors.New("agent not ready")

	// ErrExecutionFailed indicates generation failed after retries.
	ErrExecutionFailed = errors.New("execution failed")
)

// Config contains all required parameters for the agent.
type Config struct {
	Genkit   *genkit.Genkit
	Sessions *session.Store
	Logger   *slog.Logger
	Tools    []ai.Tool // Pre-registered tools from RegisterXxx()

	// Knowledge is the FAQ store. nil puts the agent in not-ready mode:
	// it acknowledges every message with NotReadyMessage and never calls
	// the model.
	Knowledge *knowledge.Store

	// ModelName is the provider-qualified model (e.g. "googleai/gemini-2.5-flash").
	ModelName string
	// MaxTurns bounds the agentic tool-calling loop. Default 5.
	MaxTurns int
	// TopK is the number of FAQ passages retrieved per request. Default 2.
	TopK int

	// RetryConfig configures model call retries (zero-value uses defaults).
	RetryConfig RetryConfig
	// RateLimiter throttles model calls (nil = default 10 rps, burst 30).
	RateLimiter *rate.Limiter
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Agent is the support conversation agent.
// All configuration is captured immutably at construction; Agent is safe
// for concurrent use.
type Agent struct {
	modelName string
	maxTurns  int
	topK      int

	retryConfig RetryConfig
	rateLimiter *rate.Limiter

	g         *genkit.Genkit
	sessions  *session.Store
	knowledge *knowledge.Store // nil = not ready
	logger    *slog.Logger
	toolRefs  []ai.ToolRef // cached (ai.Tool implements ai.ToolRef)
	toolNames string       // cached comma-separated for logging
}

// New creates an Agent with the given configuration.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 2
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	// Cache tool refs and names at construction.
	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		modelName:   cfg.ModelName,
		maxTurns:    maxTurns,
		topK:        topK,
		retryConfig: retryConfig,
		rateLimiter: rl,
		g:           cfg.Genkit,
		sessions:    cfg.Sessions,
		knowledge:   cfg.Knowledge,
		logger:      cfg.Logger,
		toolRefs:    toolRefs,
		toolNames:   strings.Join(names, ", "),
	}

	a.logger.Info("support agent initialized",
		"model", a.modelName,
		"tools", a.toolNames,
		"max_turns", a.maxTurns,
		"ready", a.Ready(),
	)
	return a, nil
}

// Ready reports whether the knowledge base initialized. A not-ready agent
// still answers, with NotReadyMessage.
func (a *Agent) Ready() bool {
	return a.knowledge != nil
}

// Answer produces the reply for one customer message.
//
// Turns for the same session are serialized via the session turn lock so
// interleaved webhooks cannot corrupt history ordering. On generation
// failure the returned text is FallbackMessage and the error describes the
// cause; callers send the text to the customer and log the error.
func (a *Agent) Answer(ctx context.Context, sessionID, question string) (string, error) {
	mu := a.sessions.TurnLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if !a.Ready() {
		a.logger.Warn("answering in degraded mode, knowledge base unavailable",
			"session_id", sessionID)
		return NotReadyMessage, nil
	}

	docs := a.retrieveContext(ctx, question)

	history := a.sessions.GetOrCreate(sessionID)

	// Deep copy is required: Genkit's renderMessages modifies message
	// content in place, so concurrent executions sharing message objects
	// would race.
	messages := deepCopyMessages(history.Messages())
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))

	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if len(docs) > 0 {
		opts = append(opts, ai.WithDocs(docs...))
	}

	resp, err := a.generateWithRetry(ctx, opts)
	if err != nil {
		a.logger.Error("generation failed, returning fallback",
			"session_id", sessionID,
			"error", err)
		return FallbackMessage, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		a.logger.Warn("model returned empty response", "session_id", sessionID)
		text = FallbackMessage
	}

	history.Add(question, text)
	return text, nil
}

// retrieveContext fetches FAQ passages for grounding, degrading to no
// context on failure or timeout.
func (a *Agent) retrieveContext(ctx context.Context, question string) []*ai.Document {
	retrievalCtx, cancel := context.WithTimeout(ctx, ragRetrievalTimeout)
	defer cancel()

	results, err := a.knowledge.Search(retrievalCtx, question, a.topK)
	if err != nil {
		a.logger.Warn("FAQ retrieval failed, continuing without context", "error", err)
		return nil
	}

	docs := make([]*ai.Document, len(results))
	for i, r := range results {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		docs[i] = ai.DocumentFromText(r.Content, meta)
	}
	return docs
}

// deepCopyMessages creates independent copies of Message and Part structs.
// See the data-race note in Answer.
func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			parts[j] = deepCopyPart(part)
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: shallowCopyMap(msg.Metadata),
		}
	}
	return copied
}

// deepCopyPart copies one ai.Part. ToolRequest.Input and
// ToolResponse.Output are type any and copied by reference; Genkit only
// mutates the content slice, not tool data.
func deepCopyPart(p *ai.Part) *ai.Part {
	if p == nil {
		return nil
	}
	cp := &ai.Part{
		Kind:        p.Kind,
		ContentType: p.ContentType,
		Text:        p.Text,
		Custom:      shallowCopyMap(p.Custom),
		Metadata:    shallowCopyMap(p.Metadata),
	}
	if p.ToolRequest != nil {
		cp.ToolRequest = &ai.ToolRequest{
			Input: p.ToolRequest.Input,
			Name:  p.ToolRequest.Name,
			Ref:   p.ToolRequest.Ref,
		}
	}
	if p.ToolResponse != nil {
		cp.ToolResponse = &ai.ToolResponse{
			Name:   p.ToolResponse.Name,
			Output: p.ToolResponse.Output,
			Ref:    p.ToolResponse.Ref,
		}
	}
	return cp
}

// shallowCopyMap copies map keys and values but not nested structures.
func shallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
