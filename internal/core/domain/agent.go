package domain

import "time"

type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleTool      ChatRole = "tool"
)

// ChatMessage is one turn of the in-run transcript. Conversation state is
// scoped to a single run and never persisted.
type ChatMessage struct {
	Role      ChatRole      `json:"role"`
	Content   string        `json:"content,omitempty"`
	ToolCalls []ToolRequest `json:"tool_calls,omitempty"`
	ToolName  string        `json:"tool_name,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
}

// ToolRequest is one structured tool invocation requested by the
// completion service. Seq numbers requests by occurrence within a run so
// streamed activity frames can be correlated with results.
type ToolRequest struct {
	ID   string         `json:"id"`
	Seq  int            `json:"seq"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

const (
	ToolStatusOK    = "ok"
	ToolStatusError = "error"
)

type ToolResult struct {
	CallID   string `json:"call_id"`
	Seq      int    `json:"seq"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Content  string `json:"content"`
	Artifact string `json:"artifact,omitempty"`
}

// Completion is the completion service's answer to one transcript: free
// text, tool requests, or both.
type Completion struct {
	Text         string
	ToolRequests []ToolRequest
}

// ArgSpec declares one argument of a tool's input schema.
type ArgSpec struct {
	Name        string
	Type        string // string, integer, number, boolean, array
	Description string
	Required    bool
	Enum        []string
}

type ToolSchema struct {
	Name        string
	Description string
	Args        []ArgSpec
}

type AgentInputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AgentRequest struct {
	Messages []AgentInputMessage `json:"messages"`
}

type FrameType string

const (
	FrameText         FrameType = "text"
	FrameToolActivity FrameType = "tool_activity"
	FrameSummary      FrameType = "summary"
	FrameError        FrameType = "error"
	FrameDone         FrameType = "done"
)

// ToolActivity is emitted at the moment a tool is dispatched, before its
// result is known.
type ToolActivity struct {
	Seq  int            `json:"seq"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

const (
	RunCompleted = "completed"
	RunCeiling   = "ceiling"
)

type RunSummary struct {
	Iterations int           `json:"iterations"`
	ToolCalls  int           `json:"tool_calls"`
	Terminated string        `json:"terminated"`
	Ledger     LedgerSummary `json:"ledger"`
}

// StreamFrame is one typed frame of the ordered output stream. Every
// terminal stream ends with a summary or an error frame followed by the
// done marker, never a silent close.
type StreamFrame struct {
	Type     FrameType     `json:"type"`
	Text     string        `json:"text,omitempty"`
	Tool     *ToolActivity `json:"tool,omitempty"`
	Summary  *RunSummary   `json:"summary,omitempty"`
	Error    string        `json:"error,omitempty"`
	SentAt   time.Time     `json:"sent_at,omitempty"`
}
