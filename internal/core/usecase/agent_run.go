package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/core/ports"
)

// AgentLimits bound one orchestration run.
type AgentLimits struct {
	MaxIterations     int
	RunTimeout        time.Duration
	CompletionTimeout time.Duration
	ToolTimeout       time.Duration
	StreamChunkChars  int
}

func (l AgentLimits) normalized() AgentLimits {
	out := l
	if out.MaxIterations <= 0 {
		out.MaxIterations = 10
	}
	if out.RunTimeout <= 0 {
		out.RunTimeout = 120 * time.Second
	}
	if out.CompletionTimeout <= 0 {
		out.CompletionTimeout = 60 * time.Second
	}
	if out.ToolTimeout <= 0 {
		out.ToolTimeout = 30 * time.Second
	}
	if out.StreamChunkChars <= 0 {
		out.StreamChunkChars = 120
	}
	return out
}

// AgentRunUseCase drives one bounded conversation with the completion
// service. Tool dispatch within a turn is strictly sequential so a later
// tool can rely on a side effect of an earlier one; the iteration ceiling
// bounds completion calls regardless of how many tools each response
// requests.
type AgentRunUseCase struct {
	completer ports.ChatCompleter
	deps      ToolDeps
	prices    PriceTable
	limits    AgentLimits
}

func NewAgentRunUseCase(completer ports.ChatCompleter, deps ToolDeps, prices PriceTable, limits AgentLimits) *AgentRunUseCase {
	return &AgentRunUseCase{
		completer: completer,
		deps:      deps,
		prices:    prices,
		limits:    limits.normalized(),
	}
}

const agentSystemPrompt = `You are an assistant for exploring a personal and professional relationship dataset.
Use the available tools to search contacts, inspect details, find introduction paths, prepare outreach and export results.
Prefer tool results over guesses. When a search returns nothing, say so instead of inventing contacts.
Answer concisely and cite contact ids when referring to specific people.`

func (uc *AgentRunUseCase) Run(ctx context.Context, req domain.AgentRequest, sink ports.FrameSink) error {
	if len(req.Messages) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "agent run", fmt.Errorf("at least one message is required"))
	}

	runCtx, cancel := context.WithTimeout(ctx, uc.limits.RunTimeout)
	defer cancel()

	ledger := NewLedger(uc.prices)
	registry := NewToolRegistry(uc.deps, ledger)
	transcript := seedTranscript(req.Messages)

	toolCalls := 0
	iterations := 0
	terminated := ""

	for i := 1; i <= uc.limits.MaxIterations; i++ {
		iterations = i

		completionCtx, completionCancel := context.WithTimeout(runCtx, uc.limits.CompletionTimeout)
		completion, err := uc.completer.Complete(completionCtx, transcript, registry.Schemas())
		completionCancel()
		ledger.Record(domain.OpChatCompletion, false)
		if err != nil {
			// The completion service itself failing is terminal; a
			// caller disconnect surfaces here as context cancellation.
			return uc.emitTerminalError(sink, fmt.Errorf("completion call: %w", err))
		}

		if text := strings.TrimSpace(completion.Text); text != "" {
			if err := uc.emitText(sink, text); err != nil {
				return err
			}
		}
		transcript = append(transcript, domain.ChatMessage{
			Role:      domain.RoleAssistant,
			Content:   completion.Text,
			ToolCalls: completion.ToolRequests,
		})

		if len(completion.ToolRequests) == 0 {
			terminated = domain.RunCompleted
			break
		}
		if i == uc.limits.MaxIterations {
			// Ceiling reached: a defined terminal state, not an error.
			// The pending tool requests are not dispatched.
			terminated = domain.RunCeiling
			break
		}

		for _, request := range completion.ToolRequests {
			toolCalls++
			request.Seq = toolCalls

			// Activity is announced before the result exists; the
			// caller sees what is running, not what succeeded.
			if err := sink.Emit(domain.StreamFrame{
				Type:   domain.FrameToolActivity,
				Tool:   &domain.ToolActivity{Seq: request.Seq, Name: request.Name, Args: request.Args},
				SentAt: time.Now().UTC(),
			}); err != nil {
				return err
			}

			toolCtx, toolCancel := context.WithTimeout(runCtx, uc.limits.ToolTimeout)
			result := registry.Dispatch(toolCtx, request)
			toolCancel()

			transcript = append(transcript, domain.ChatMessage{
				Role:     domain.RoleTool,
				Content:  result.Content,
				ToolName: result.Name,
				CallID:   result.CallID,
			})
		}
	}

	if terminated == "" {
		terminated = domain.RunCeiling
	}

	summary := domain.RunSummary{
		Iterations: iterations,
		ToolCalls:  toolCalls,
		Terminated: terminated,
		Ledger:     ledger.Summary(),
	}
	if err := sink.Emit(domain.StreamFrame{
		Type:    domain.FrameSummary,
		Summary: &summary,
		SentAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}
	return sink.Emit(domain.StreamFrame{Type: domain.FrameDone, SentAt: time.Now().UTC()})
}

func (uc *AgentRunUseCase) emitTerminalError(sink ports.FrameSink, cause error) error {
	if err := sink.Emit(domain.StreamFrame{
		Type:   domain.FrameError,
		Error:  cause.Error(),
		SentAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	if err := sink.Emit(domain.StreamFrame{Type: domain.FrameDone, SentAt: time.Now().UTC()}); err != nil {
		return err
	}
	return cause
}

func (uc *AgentRunUseCase) emitText(sink ports.FrameSink, text string) error {
	for _, part := range splitByRunes(text, uc.limits.StreamChunkChars) {
		if part == "" {
			continue
		}
		if err := sink.Emit(domain.StreamFrame{
			Type:   domain.FrameText,
			Text:   part,
			SentAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func seedTranscript(messages []domain.AgentInputMessage) []domain.ChatMessage {
	transcript := make([]domain.ChatMessage, 0, len(messages)+1)
	transcript = append(transcript, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: agentSystemPrompt,
	})
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := domain.ChatRole(strings.ToLower(strings.TrimSpace(msg.Role)))
		switch role {
		case domain.RoleUser, domain.RoleAssistant, domain.RoleSystem:
		default:
			role = domain.RoleUser
		}
		transcript = append(transcript, domain.ChatMessage{Role: role, Content: content})
	}
	return transcript
}

func splitByRunes(text string, chunkChars int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if chunkChars <= 0 || utf8.RuneCountInString(text) <= chunkChars {
		return []string{text}
	}

	parts := make([]string, 0, utf8.RuneCountInString(text)/chunkChars+1)
	runes := []rune(text)
	for start := 0; start < len(runes); start += chunkChars {
		end := start + chunkChars
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
