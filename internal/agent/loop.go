// Package agent runs the orchestration loop for one customer utterance:
// build the governed context window, call the model, dispatch any tool
// calls through the registry, and repeat until the model produces a final
// reply or the tool budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caresbot/caresbot/internal/config"
	"github.com/caresbot/caresbot/internal/core"
	"github.com/caresbot/caresbot/internal/policy"
	"github.com/caresbot/caresbot/internal/session"
	"github.com/caresbot/caresbot/internal/store"
	"github.com/caresbot/caresbot/internal/tools"
)

// Loop wires the capabilities together. One Loop serves all sessions;
// per-session ordering comes from the session lock.
type Loop struct {
	Config   *config.Config
	Client   core.LLMClient
	Registry *tools.Registry
	Sessions *session.Store
	Policy   *policy.Engine
	DB       *store.DB
	LogStore *store.LogStore
	logger   *log.Logger
}

// NewLoop creates the orchestrator.
func NewLoop(cfg *config.Config, client core.LLMClient, reg *tools.Registry, sessions *session.Store, eng *policy.Engine, db *store.DB, ls *store.LogStore) *Loop {
	return &Loop{
		Config:   cfg,
		Client:   client,
		Registry: reg,
		Sessions: sessions,
		Policy:   eng,
		DB:       db,
		LogStore: ls,
		logger:   log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
	}
}

// HandleUtterance processes one customer message and returns the reply.
// The session lock is held for the whole call, so concurrent messages on
// the same session are served one at a time in arrival order; different
// sessions proceed in parallel.
func (l *Loop) HandleUtterance(ctx context.Context, sessionID, customerID, text string) (string, error) {
	sess := l.Sessions.GetOrCreate(sessionID)
	sess.Lock()
	defer sess.Unlock()
	defer sess.Touch()

	if err := sess.Bind(customerID); err != nil {
		l.logger.Printf("session %s: rejected rebind to %s", sessionID, customerID)
		return identityRefusal, err
	}

	l.record(ctx, sess, core.Turn{Role: core.RoleUser, Content: text, CreatedAt: time.Now()})

	toolDefs := l.Registry.Definitions()
	systemPrompt := BuildSystemPrompt(l.Policy.Rules(), sess.CustomerID())

	for cycle := 0; cycle < l.Config.MaxToolCycles; cycle++ {
		messages := buildMessages(systemPrompt, sess.History())

		llmCtx, cancel := context.WithTimeout(ctx, l.Config.LLMTimeout)
		content, toolCalls, err := l.Client.ChatCompletionWithTools(llmCtx, messages, toolDefs)
		cancel()
		if err != nil {
			l.fail(ctx, sess, fmt.Sprintf("chat completion: %v", err))
			return l.finalize(ctx, sess, Apology), nil
		}

		if len(toolCalls) == 0 {
			if err := l.Policy.ValidateResponseSurface(content); err != nil {
				l.fail(ctx, sess, fmt.Sprintf("response surface rejected: %v", err))
				return l.finalize(ctx, sess, Apology), nil
			}
			return l.finalize(ctx, sess, content), nil
		}

		l.logger.Printf("session %s: cycle %d dispatching %d tool call(s)", sessionID, cycle+1, len(toolCalls))
		for _, tc := range toolCalls {
			turn, fatal := l.dispatch(ctx, sess, tc)
			if fatal != "" {
				l.fail(ctx, sess, fatal)
				return l.finalize(ctx, sess, Apology), nil
			}
			l.record(ctx, sess, turn)
		}
	}

	l.fail(ctx, sess, fmt.Sprintf("tool budget (%d cycles) exhausted", l.Config.MaxToolCycles))
	return l.finalize(ctx, sess, degradedAnswer), nil
}

// dispatch runs one tool call and converts the outcome into a tool-result
// turn. Argument and policy problems are fed back to the model as result
// text so it can correct itself; infrastructure failures are fatal for the
// utterance and degrade to the apology.
func (l *Loop) dispatch(ctx context.Context, sess *session.Session, tc core.ToolCall) (core.Turn, string) {
	res, err := l.Registry.Invoke(ctx, tc.Function.Name, tc.Function.Arguments, sess.CustomerID())
	trace := &core.ToolTrace{
		Name:      tc.Function.Name,
		CallID:    tc.ID,
		Arguments: tc.Function.Arguments,
	}
	if err != nil {
		var argErr *core.ArgumentError
		var polErr *core.PolicyViolation
		switch {
		case errors.As(err, &argErr), errors.As(err, &polErr), errors.Is(err, core.ErrUnknownTool):
			l.logger.Printf("tool %s rejected: %v", tc.Function.Name, err)
			return core.Turn{
				Role:      core.RoleToolResult,
				Content:   "The request was not accepted: " + err.Error(),
				Tool:      trace,
				CreatedAt: time.Now(),
			}, ""
		default:
			return core.Turn{}, fmt.Sprintf("tool %s: %v", tc.Function.Name, err)
		}
	}
	trace.RawResult = res.Raw
	return core.Turn{
		Role:      core.RoleToolResult,
		Content:   res.Normalized,
		Tool:      trace,
		CreatedAt: time.Now(),
	}, ""
}

// finalize appends the assistant reply to the session and returns it.
func (l *Loop) finalize(ctx context.Context, sess *session.Session, reply string) string {
	l.record(ctx, sess, core.Turn{Role: core.RoleAssistant, Content: reply, CreatedAt: time.Now()})
	return reply
}

// record appends a turn to the in-memory session (the authority) and best
// effort to the transcript audit log.
func (l *Loop) record(ctx context.Context, sess *session.Session, turn core.Turn) {
	sess.Append(turn)
	if l.DB == nil {
		return
	}
	if _, err := l.DB.AppendTranscript(ctx, sess.ID, sess.CustomerID(), turn); err != nil {
		l.logger.Printf("transcript append failed: %v", err)
	}
}

// fail logs the internal reason for a degraded turn; the customer only ever
// sees the apology.
func (l *Loop) fail(ctx context.Context, sess *session.Session, detail string) {
	l.logger.Printf("session %s degraded: %s", sess.ID, detail)
	if l.LogStore != nil {
		_ = l.LogStore.LogError(ctx, "agent", fmt.Sprintf("session %s: %s", sess.ID, detail))
	}
}

// buildMessages serializes the history into the wire shape. The mapping is
// deterministic so replaying the same history always yields the same
// context window. Tool-result turns are replayed as an assistant tool call
// plus its result so providers see a well-formed exchange.
func buildMessages(systemPrompt string, history []core.Turn) []core.Message {
	messages := make([]core.Message, 0, len(history)*2+1)
	messages = append(messages, core.Message{Role: "system", Content: systemPrompt})
	for _, t := range history {
		switch t.Role {
		case core.RoleUser:
			messages = append(messages, core.Message{Role: "user", Content: t.Content})
		case core.RoleAssistant:
			messages = append(messages, core.Message{Role: "assistant", Content: t.Content})
		case core.RoleToolResult:
			if t.Tool == nil {
				continue
			}
			call := core.ToolCall{ID: t.Tool.CallID, Type: "function"}
			call.Function.Name = t.Tool.Name
			call.Function.Arguments = t.Tool.Arguments
			messages = append(messages,
				core.Message{Role: "assistant", ToolCalls: []core.ToolCall{call}},
				core.Message{Role: "tool", Content: t.Content, ToolCallID: t.Tool.CallID},
			)
		}
	}
	return messages
}
