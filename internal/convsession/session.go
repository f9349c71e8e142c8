package convsession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sirupsen/logrus"

	"codexcore/internal/llmclient"
	"codexcore/internal/logging"
)

// PostTurnHook runs after a turn reaches TaskComplete: index refresh and
// memory-distillation enqueue's agent-loop responsibility.
type PostTurnHook func(ctx context.Context, lastAgentMessage string)

// Session is one conversation: a submit/next_event API over Op variants,
// with turn-replacement/interrupt semantics and running token accounting,
// built around an explicit submit/event queue rather than ad-hoc callbacks.
type Session struct {
	client       *llmclient.Client
	endpoint     llmclient.Endpoint
	instructions string
	overlay      string
	postTurn     PostTurnHook

	contextWindowTokens int

	submissions chan submission
	events      chan Event

	mu     sync.Mutex
	active *turnState
	usage  UsageInfo
	closed bool
}

type submission struct {
	id string
	op Op
}

type turnState struct {
	id          string
	cancel      context.CancelFunc
	abortReason TurnAbortReason
}

// NewSession starts a session's background submission loop.
func NewSession(client *llmclient.Client, endpoint llmclient.Endpoint, instructions, overlay string, contextWindowTokens int, postTurn PostTurnHook) *Session {
	if postTurn == nil {
		postTurn = func(context.Context, string) {}
	}
	s := &Session{
		client: client, endpoint: endpoint, instructions: instructions, overlay: overlay,
		postTurn: postTurn, contextWindowTokens: contextWindowTokens,
		submissions: make(chan submission, 16), events: make(chan Event, 256),
	}
	go s.run()
	return s
}

// Submit enqueues op and returns the id new events for it will carry.
// A UserTurn submitted while a turn is active replaces it, emitting
// TurnAborted{Replaced} for the superseded id.
func (s *Session) Submit(op Op) string {
	id := uuid.NewString()
	logging.Log.WithFields(logrus.Fields{"id": id, "op": op.Kind}).Debug("session: op submitted")
	s.submissions <- submission{id: id, op: op}
	return id
}

// NextEvent blocks until an event is available, ctx is canceled, or the
// session has shut down (ok=false).
func (s *Session) NextEvent(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-s.events:
		return ev, ok
	case <-ctx.Done():
		return Event{}, false
	}
}

func (s *Session) run() {
	for sub := range s.submissions {
		switch sub.op.Kind {
		case OpUserTurn:
			s.replaceActive(AbortReplaced)
			s.startTurn(sub.id, sub.op)
		case OpInterrupt:
			s.replaceActive(AbortInterrupted)
		case OpCompact, OpListMcpTools:
			s.events <- Event{ID: sub.id, Msg: EventMsg{Kind: MsgTaskComplete}}
		case OpShutdown:
			s.replaceActive(AbortInterrupted)
			s.events <- Event{ID: sub.id, Msg: EventMsg{Kind: MsgShutdownComplete}}
			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()
			close(s.events)
			logging.Log.Info("session: shut down")
			return
		}
	}
}

// replaceActive cancels the currently running turn, if any, tagging the
// abort with the given reason so its own goroutine reports it correctly.
func (s *Session) replaceActive(reason TurnAbortReason) {
	s.mu.Lock()
	t := s.active
	if t != nil {
		t.abortReason = reason
	}
	s.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

func (s *Session) startTurn(id string, op Op) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &turnState{id: id, cancel: cancel, abortReason: AbortInterrupted}

	s.mu.Lock()
	s.active = t
	s.mu.Unlock()

	go s.runTurn(ctx, t, op)
}

func (s *Session) runTurn(ctx context.Context, t *turnState, op Op) {
	ep := s.endpoint
	if op.Model != "" {
		ep.Model = op.Model
	}

	messages := llmclient.BuildMessages(op.Items, s.instructions, s.overlay)

	agg := llmclient.NewAggregator(llmclient.Streaming)
	var lastAgentMessage string
	var sawTerminal bool

	emit := func(ev llmclient.ResponseEvent) {
		for _, out := range agg.Feed(ev) {
			msg, text, ok := s.translate(out)
			if !ok {
				continue
			}
			if msg.Kind == MsgAgentMessage {
				lastAgentMessage = text
				sawTerminal = true
			}
			if msg.Kind == MsgTokenCount && msg.Info.TotalTokens == 0 && lastAgentMessage != "" {
				msg.Info = s.accumulate(&llmclient.TokenUsage{CompletionTokens: estimateCompletionTokens(lastAgentMessage)})
			}
			s.events <- Event{ID: t.id, Msg: msg}
		}
	}

	err := s.client.Dispatch(ctx, ep, messages, emit)

	s.mu.Lock()
	stillActive := s.active == t
	if stillActive {
		s.active = nil
	}
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return
	}

	switch {
	case ctx.Err() != nil:
		s.events <- Event{ID: t.id, Msg: EventMsg{Kind: MsgTurnAborted, AbortReason: t.abortReason}}
	case err != nil:
		logging.Log.WithFields(logrus.Fields{"turn": t.id, "error": err}).Error("session: turn failed")
		s.events <- Event{ID: t.id, Msg: EventMsg{Kind: MsgError, Text: err.Error()}}
	default:
		if !sawTerminal {
			lastAgentMessage = ""
		}
		last := lastAgentMessage
		if sawTerminal && len(op.FinalOutputJSONSchema) > 0 {
			if verr := validateFinalOutput(op.FinalOutputJSONSchema, last); verr != nil {
				logging.Log.WithFields(logrus.Fields{"turn": t.id, "error": verr}).Error("session: final output schema validation failed")
				s.events <- Event{ID: t.id, Msg: EventMsg{Kind: MsgError, Text: verr.Error()}}
				return
			}
		}
		s.events <- Event{ID: t.id, Msg: EventMsg{Kind: MsgTaskComplete, LastAgentMessage: &last}}
		s.postTurn(context.Background(), last)
	}
}

// translate maps one normalized ResponseEvent onto the session's EventMsg
// superset; item kinds outside Message/Reasoning (function calls, shell
// calls) are handled by the command-dispatch layer, not here.
func (s *Session) translate(ev llmclient.ResponseEvent) (EventMsg, string, bool) {
	switch ev.Kind {
	case llmclient.EventOutputTextDelta:
		return EventMsg{Kind: MsgAgentMessageDelta, Text: ev.Delta}, "", true
	case llmclient.EventReasoningSummaryDelta:
		return EventMsg{Kind: MsgAgentReasoningDelta, Text: ev.Delta}, "", true
	case llmclient.EventReasoningContentDelta:
		return EventMsg{Kind: MsgAgentReasoningRawDelta, Text: ev.Delta}, "", true
	case llmclient.EventOutputItemDone:
		switch ev.Item.Kind {
		case llmclient.ItemMessage:
			if ev.Item.Role == "assistant" {
				text := ev.Item.PlainText()
				return EventMsg{Kind: MsgAgentMessage, Text: text}, text, true
			}
		case llmclient.ItemReasoning:
			return EventMsg{Kind: MsgAgentReasoning, Text: strings.Join(ev.Item.Summary, "")}, "", true
		}
		return EventMsg{}, "", false
	case llmclient.EventCompleted:
		info := s.accumulate(ev.TokenUsage)
		return EventMsg{Kind: MsgTokenCount, Info: info}, "", true
	default:
		return EventMsg{}, "", false
	}
}

// validateFinalOutput checks the turn's closing agent message against a
// caller-supplied JSON schema before TaskComplete is allowed to surface it.
func validateFinalOutput(schema json.RawMessage, text string) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("final_output.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("convsession: compile final_output_json_schema: %w", err)
	}
	sch, err := compiler.Compile("final_output.json")
	if err != nil {
		return fmt.Errorf("convsession: compile final_output_json_schema: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return fmt.Errorf("convsession: final agent message is not valid JSON: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("convsession: final agent message does not satisfy final_output_json_schema: %w", err)
	}
	return nil
}

func (s *Session) accumulate(usage *llmclient.TokenUsage) UsageInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if usage != nil {
		s.usage.TotalPromptTokens += usage.PromptTokens
		s.usage.TotalCompletionTokens += usage.CompletionTokens
		s.usage.TotalTokens += usage.TotalTokens
	}
	s.usage.ContextWindowTokens = s.contextWindowTokens
	if s.contextWindowTokens > 0 {
		remaining := s.contextWindowTokens - s.usage.TotalTokens
		if remaining < 0 {
			remaining = 0
		}
		s.usage.PercentOfContextWindowLeft = 100 * float64(remaining) / float64(s.contextWindowTokens)
	}
	return s.usage
}

// estimateCompletionTokens counts words+punctuation as a stand-in for a
// completion's token count. It only runs when a provider's final event
// carries no usage object of its own (some OpenAI-compatible and Ollama
// backends omit it), so context-window accounting still has a number to
// report instead of stalling at zero until the next turn's usage arrives.
func estimateCompletionTokens(s string) int {
	inWord := false
	count := 0
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if inWord {
				count++
				inWord = false
			}
		case unicode.IsPunct(r):
			if inWord {
				count++
				inWord = false
			}
			count++
		default:
			inWord = true
		}
	}
	if inWord {
		count++
	}
	return count
}
