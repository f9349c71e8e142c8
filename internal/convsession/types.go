// Package convsession implements the conversation session lifecycle: a
// submit/next_event API over Op variants, turn replacement/interrupt
// semantics, and token-usage aggregation.
package convsession

import (
	"encoding/json"

	"codexcore/internal/llmclient"
)

// OpKind tags a submitted operation.
type OpKind string

const (
	OpUserTurn     OpKind = "user_turn"
	OpCompact      OpKind = "compact"
	OpListMcpTools OpKind = "list_mcp_tools"
	OpInterrupt    OpKind = "interrupt"
	OpShutdown     OpKind = "shutdown"
)

// Op is one request submitted to a Session.
type Op struct {
	Kind OpKind

	// UserTurn
	Items                 []llmclient.ResponseItem
	Cwd                   string
	ApprovalPolicy        string
	SandboxPolicy         string
	Model                 string
	Effort                string
	Summary               string
	FinalOutputJSONSchema json.RawMessage
}

// TurnAbortReason explains why a turn ended without completing.
type TurnAbortReason string

const (
	AbortInterrupted TurnAbortReason = "interrupted"
	AbortReplaced    TurnAbortReason = "replaced"
	AbortReviewEnded TurnAbortReason = "review_ended"
)

// EventMsgKind tags an EventMsg variant.
type EventMsgKind string

const (
	MsgAgentMessage           EventMsgKind = "agent_message"
	MsgAgentMessageDelta      EventMsgKind = "agent_message_delta"
	MsgAgentReasoning         EventMsgKind = "agent_reasoning"
	MsgAgentReasoningDelta    EventMsgKind = "agent_reasoning_delta"
	MsgAgentReasoningRaw      EventMsgKind = "agent_reasoning_raw_content"
	MsgAgentReasoningRawDelta EventMsgKind = "agent_reasoning_raw_content_delta"
	MsgTaskComplete           EventMsgKind = "task_complete"
	MsgTokenCount             EventMsgKind = "token_count"
	MsgTurnAborted            EventMsgKind = "turn_aborted"
	MsgError                  EventMsgKind = "error"
	MsgStreamError            EventMsgKind = "stream_error"
	MsgPlanUpdate             EventMsgKind = "plan_update"
	MsgMcpListToolsResponse   EventMsgKind = "mcp_list_tools_response"
	MsgShutdownComplete       EventMsgKind = "shutdown_complete"
)

// EventMsg is the tagged superset of per-turn and session-level messages.
type EventMsg struct {
	Kind EventMsgKind

	Text string // AgentMessage(Delta) / AgentReasoning(Delta) / RawContent(Delta) / Error / StreamError

	LastAgentMessage *string // TaskComplete

	Info       UsageInfo // TokenCount
	RateLimits *llmclient.RateLimitSnapshot

	AbortReason TurnAbortReason // TurnAborted

	PlanArgs json.RawMessage // PlanUpdate

	McpTools json.RawMessage // McpListToolsResponse
}

// UsageInfo is the running token-usage picture carried on TokenCount events.
type UsageInfo struct {
	TotalPromptTokens           int
	TotalCompletionTokens       int
	TotalTokens                 int
	ContextWindowTokens         int
	PercentOfContextWindowLeft float64
}

// Event pairs a submission id with the message it carries.
type Event struct {
	ID  string
	Msg EventMsg
}
