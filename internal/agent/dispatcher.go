package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bass-society/secretary-backend/internal/clients/openai"
	"github.com/bass-society/secretary-backend/internal/data/repos"
	pkgerrors "github.com/bass-society/secretary-backend/internal/pkg/errors"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
)

// DefaultMaxToolCalls bounds one chat turn's planning/execution loop.
const DefaultMaxToolCalls = 6

// ErrToolBudgetExceeded terminates a turn whose model keeps calling
// tools past the per-turn cap.
var ErrToolBudgetExceeded = errors.New("tool call budget exceeded")

// ChatCompleter is the model transport the dispatcher plans against.
// The OpenAI client implements it; tests substitute scripted doubles.
type ChatCompleter interface {
	ChatWithTools(ctx context.Context, system string, msgs []openai.ChatMessage, tools []openai.ToolDef) (openai.ChatCompletion, error)
}

// ToolTrace records one executed tool call: the audit trail that lets
// callers check every claim in the answer against a tool result.
type ToolTrace struct {
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// TurnResult is one completed chat turn.
type TurnResult struct {
	Answer string      `json:"answer"`
	Trace  []ToolTrace `json:"trace,omitempty"`
}

type Dispatcher struct {
	registry     *Registry
	llm          ChatCompleter
	members      repos.MemberRepo
	maxToolCalls int
	log          *logger.Logger
}

func NewDispatcher(registry *Registry, llm ChatCompleter, members repos.MemberRepo, maxToolCalls int, baseLog *logger.Logger) *Dispatcher {
	if maxToolCalls <= 0 {
		maxToolCalls = DefaultMaxToolCalls
	}
	return &Dispatcher{
		registry:     registry,
		llm:          llm,
		members:      members,
		maxToolCalls: maxToolCalls,
		log:          baseLog.With("service", "Dispatcher"),
	}
}

const dispatcherSystemPrompt = `You are the secretary assistant for a student society. You answer questions about members, projects, topics, meetings and tasks.

Rules:
- Every fact in your answer must come from a tool result in this conversation. If you have not called a tool for it, you do not know it.
- Never answer from general knowledge or from guesses about the data.
- Call write tools only when the user explicitly asks to create or change something, never to answer an information question.
- If a tool reports an ambiguous or unknown name, ask the user to clarify instead of retrying with a guess.
- If the tools cannot answer the question, say so plainly.`

// HandleTurn runs one chat turn: the model plans against the tool
// catalog, the dispatcher validates and executes each requested call,
// and the loop ends with the model's final answer. More than
// maxToolCalls executions terminates the turn with
// ErrToolBudgetExceeded.
func (d *Dispatcher) HandleTurn(ctx context.Context, chatID string, history []openai.ChatMessage, message string) (TurnResult, error) {
	var result TurnResult

	caller := Caller{ChatID: chatID, Now: time.Now()}
	if chatID != "" {
		member, err := d.members.GetByChatID(ctx, nil, chatID)
		if err != nil {
			return result, fmt.Errorf("caller lookup: %w", err)
		}
		caller.Member = member
	}

	msgs := make([]openai.ChatMessage, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, openai.ChatMessage{Role: "user", Content: message})

	catalog := d.registry.Catalog()
	callsUsed := 0

	for {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		completion, err := d.llm.ChatWithTools(ctx, dispatcherSystemPrompt, msgs, catalog)
		if err != nil {
			return result, fmt.Errorf("model turn: %w", err)
		}

		if len(completion.ToolCalls) == 0 {
			result.Answer = completion.Text
			d.log.Debug("Turn answered", "chat_id", chatID, "tool_calls", callsUsed)
			return result, nil
		}

		msgs = append(msgs, openai.ChatMessage{
			Role:      "assistant",
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		for _, call := range completion.ToolCalls {
			callsUsed++
			if callsUsed > d.maxToolCalls {
				d.log.Warn("Tool budget exceeded", "chat_id", chatID, "budget", d.maxToolCalls)
				return result, ErrToolBudgetExceeded
			}

			trace := ToolTrace{Name: call.Name, Args: call.Arguments}
			payload, err := d.executeCall(ctx, caller, call)
			if err != nil {
				return result, err
			}
			if payload.Error != "" {
				trace.Error = payload.Error
			} else {
				trace.Result = payload.Body
			}
			result.Trace = append(result.Trace, trace)

			msgs = append(msgs, openai.ChatMessage{
				Role:       "tool",
				Content:    payload.Content(),
				ToolCallID: call.ID,
			})
		}
	}
}

type toolPayload struct {
	Body  json.RawMessage
	Error string
}

// Content renders the payload the model sees for one tool result.
// Tool-level failures (bad input, ambiguous names, missing records)
// come back as an error field for the model to surface, not as Go
// errors that would abort the turn.
func (p toolPayload) Content() string {
	if p.Error != "" {
		b, _ := json.Marshal(map[string]string{"error": p.Error})
		return string(b)
	}
	return string(p.Body)
}

func (d *Dispatcher) executeCall(ctx context.Context, caller Caller, call openai.ToolCall) (toolPayload, error) {
	out, err := d.registry.Execute(ctx, caller, call.Name, call.Arguments)
	if err != nil {
		var inputErr *ToolInputError
		// Expected tool failures feed back into planning; anything else
		// (store failure, cancellation) aborts the turn.
		if errors.As(err, &inputErr) || errors.Is(err, ErrAmbiguousReference) ||
			errors.Is(err, pkgerrors.ErrConflict) || isNotFound(err) {
			d.log.Debug("Tool returned error to model", "tool", call.Name, "error", err.Error())
			return toolPayload{Error: err.Error()}, nil
		}
		return toolPayload{}, fmt.Errorf("tool %s: %w", call.Name, err)
	}

	body, err := json.Marshal(out)
	if err != nil {
		return toolPayload{}, fmt.Errorf("encode result of %s: %w", call.Name, err)
	}
	return toolPayload{Body: body}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, pkgerrors.ErrNotFound)
}
