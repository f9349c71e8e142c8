package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"codexcore/internal/command"
	"codexcore/internal/convsession"
	"codexcore/internal/llmclient"
)

// HandlerFunc answers one JSON-RPC method call. A nil *Error with a nil
// result is invalid; handlers always return exactly one of the two. It
// takes a plain context.Context since acp has no per-request *http.Request
// to thread through.
type HandlerFunc func(ctx context.Context, raw json.RawMessage) (interface{}, *Error)

// Server is the ACP stdio server: newline-delimited JSON-RPC 2.0 request
// handling plus session/update notifications pushed as turns stream.
type Server struct {
	client              *llmclient.Client
	endpoint            llmclient.Endpoint
	registry            *command.Registry
	contextWindowTokens int

	out io.Writer
	mu  sync.Mutex // guards writes to out

	sessMu      sync.Mutex
	sessions    map[string]*convsession.Session
	initialized bool
}

// builtinACPVerbs are the slash-command verbs ACP itself interprets
// before falling through to the shared command registry.
var builtinACPVerbs = map[string]bool{
	"status": true, "compact": true, "diff": true,
	"model": true, "models": true, "byok": true, "approvals": true,
	"new": true, "init": true, "mcp": true, "logout": true, "quit": true,
	"mention": true, "undo": true, "review": true,
}

// NewServer builds an ACP server. out receives newline-delimited JSON-RPC
// responses and notifications; in is read by Serve.
func NewServer(client *llmclient.Client, endpoint llmclient.Endpoint, registry *command.Registry, contextWindowTokens int, out io.Writer) *Server {
	return &Server{
		client: client, endpoint: endpoint, registry: registry,
		contextWindowTokens: contextWindowTokens,
		out:                 out,
		sessions:            map[string]*convsession.Session{},
	}
}

// Serve reads newline-delimited JSON-RPC requests from in until EOF or ctx
// is canceled, dispatching each to the matching method handler.
func (s *Server) Serve(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.handleLine(ctx, line)
	}
	return scanner.Err()
}

func (s *Server) handleLine(ctx context.Context, line string) {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.writeError(nil, ParseErrorCode, "failed to parse JSON-RPC request")
		return
	}
	if req.JSONRPC != "2.0" {
		s.writeError(req.ID, InvalidRequestCode, "jsonrpc must be \"2.0\"")
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		s.writeError(req.ID, MethodNotFoundCode, "unknown method: "+req.Method)
		return
	}

	result, rpcErr := handler(ctx, req.Params)
	if rpcErr != nil {
		s.writeError(req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	s.write(Response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) methods() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"initialize":     s.handleInitialize,
		"authenticate":   s.handleAuthenticate,
		"session/new":    s.handleSessionNew,
		"session/prompt": s.handleSessionPrompt,
		"session/cancel": s.handleSessionCancel,
	}
}

func (s *Server) handleInitialize(_ context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p InitializeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &Error{Code: InvalidParamsCode, Message: "invalid initialize params"}
	}
	if p.ProtocolVersion != 1 {
		return nil, &Error{Code: InvalidParamsCode, Message: "unsupported protocolVersion"}
	}
	s.initialized = true
	return InitializeResult{ProtocolVersion: 1}, nil
}

func (s *Server) handleAuthenticate(_ context.Context, _ json.RawMessage) (interface{}, *Error) {
	return struct{}{}, nil
}

func (s *Server) handleSessionNew(_ context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p SessionNewParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &Error{Code: InvalidParamsCode, Message: "invalid session/new params"}
	}

	sess := convsession.NewSession(s.client, s.endpoint, "", "", s.contextWindowTokens, nil)
	id := uuid.NewString()

	s.sessMu.Lock()
	s.sessions[id] = sess
	s.sessMu.Unlock()

	s.notify("session/update", SessionUpdateParams{
		SessionID: id, SessionUpdate: SessionUpdateAgentMessageChunk,
		Content: sess.StatusCard(id),
	})
	s.notify("session/update", SessionUpdateParams{
		SessionID: id, SessionUpdate: SessionUpdateAvailableCommandsUpd,
		AvailableCmds: s.availableCommands(),
	})

	return SessionNewResult{SessionID: id}, nil
}

func (s *Server) availableCommands() []CommandInfo {
	cmds := s.registry.List()
	out := make([]CommandInfo, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, CommandInfo{Name: c.Name, Description: c.Description})
	}
	return out
}

func (s *Server) handleSessionPrompt(ctx context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p SessionPromptParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &Error{Code: InvalidParamsCode, Message: "invalid session/prompt params"}
	}
	sess, ok := s.lookupSession(p.SessionID)
	if !ok {
		return nil, &Error{Code: SessionNotFoundErrorCode, Message: "unknown sessionId"}
	}

	text := promptText(p.Prompt)
	if strings.HasPrefix(text, "/") {
		return s.dispatchSlash(ctx, p.SessionID, text)
	}

	turnID := sess.Submit(convsession.Op{
		Kind:  convsession.OpUserTurn,
		Items: []llmclient.ResponseItem{llmclient.TextOnlyMessage("user", "input_text", text)},
	})
	s.streamTurn(ctx, p.SessionID, sess, turnID)
	return struct{}{}, nil
}

func (s *Server) dispatchSlash(ctx context.Context, sessionID, text string) (interface{}, *Error) {
	verb := strings.Fields(strings.TrimPrefix(text, "/"))
	name := ""
	if len(verb) > 0 {
		name = verb[0]
	}
	if name == "status" {
		sess, ok := s.lookupSession(sessionID)
		if !ok {
			return nil, &Error{Code: SessionNotFoundErrorCode, Message: "unknown sessionId"}
		}
		s.notify("session/update", SessionUpdateParams{
			SessionID: sessionID, SessionUpdate: SessionUpdateAgentMessageChunk,
			Content: sess.StatusCard(sessionID),
		})
		return struct{}{}, nil
	}
	if builtinACPVerbs[name] {
		// Other ACP-level verbs (compact/diff/...) are session metadata
		// operations outside codeindex/memstore's scope; acknowledged here
		// without a registry round-trip.
		s.notify("session/update", SessionUpdateParams{
			SessionID: sessionID, SessionUpdate: SessionUpdateAgentMessageChunk,
			Content: fmt.Sprintf("ok: %s", name),
		})
		return struct{}{}, nil
	}

	out, err := s.registry.Dispatch(ctx, text)
	if err != nil {
		return nil, &Error{Code: ValidationErrorCode, Message: err.Error()}
	}
	s.notify("session/update", SessionUpdateParams{
		SessionID: sessionID, SessionUpdate: SessionUpdateAgentMessageChunk, Content: out,
	})
	return struct{}{}, nil
}

func (s *Server) handleSessionCancel(_ context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p SessionCancelParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &Error{Code: InvalidParamsCode, Message: "invalid session/cancel params"}
	}
	sess, ok := s.lookupSession(p.SessionID)
	if !ok {
		return nil, &Error{Code: SessionNotFoundErrorCode, Message: "unknown sessionId"}
	}
	sess.Submit(convsession.Op{Kind: convsession.OpInterrupt})
	return struct{}{}, nil
}

// streamTurn drains a submitted turn's events, forwarding message deltas as
// session/update notifications until the turn reaches a terminal state.
func (s *Server) streamTurn(ctx context.Context, sessionID string, sess *convsession.Session, turnID string) {
	for {
		ev, ok := sess.NextEvent(ctx)
		if !ok {
			return
		}
		if ev.ID != turnID {
			continue
		}
		switch ev.Msg.Kind {
		case convsession.MsgAgentMessageDelta:
			s.notify("session/update", SessionUpdateParams{
				SessionID: sessionID, SessionUpdate: SessionUpdateAgentMessageChunk, Content: ev.Msg.Text,
			})
		case convsession.MsgAgentReasoningDelta, convsession.MsgAgentReasoningRawDelta:
			s.notify("session/update", SessionUpdateParams{
				SessionID: sessionID, SessionUpdate: SessionUpdateAgentThoughtChunk, Content: ev.Msg.Text,
			})
		case convsession.MsgTaskComplete, convsession.MsgTurnAborted, convsession.MsgError:
			return
		}
	}
}

func (s *Server) lookupSession(id string) (*convsession.Session, bool) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func promptText(blocks []PromptBlock) string {
	var b strings.Builder
	for _, p := range blocks {
		if p.Type == "text" || p.Type == "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (s *Server) notify(method string, params interface{}) {
	s.write(Notification{JSONRPC: "2.0", Method: method, Params: params})
}

func (s *Server) writeError(id json.RawMessage, code int, message string) {
	s.write(Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}})
}

func (s *Server) write(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Write(b)
	s.out.Write([]byte("\n"))
}
