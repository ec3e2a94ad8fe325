package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"
	mcpgo "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/middleware"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/dbmcp/application"
	"github.com/felixgeelhaar/dbmcp/domain/activity"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
	"github.com/felixgeelhaar/dbmcp/infrastructure/logging"
)

// Dispatcher runs tool calls. *application.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req application.Request) (tool.Result, error)
	Tools() []tool.Tool
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Name is the server name.
	Name string

	// Version is the server version.
	Version string

	// Description is an optional server description.
	Description string

	// Instructions provides usage instructions for clients.
	Instructions string

	// Dispatcher runs every tool call (required).
	Dispatcher Dispatcher

	// Activity, when set, backs the logs://latest resource and the
	// log_summary_prompt prompt.
	Activity activity.Store

	// Logger defaults to a discarding logger.
	Logger *bolt.Logger
}

// Server wraps an mcp-go server whose tools all route through a Dispatcher.
type Server struct {
	srv        *mcpgo.Server
	dispatcher Dispatcher
	logger     *bolt.Logger
	tools      []string
}

// NewServer creates the MCP server and registers every tool the dispatcher
// knows.
func NewServer(cfg ServerConfig) *Server {
	info := mcpgo.ServerInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: cfg.Description,
		Capabilities: mcpgo.Capabilities{
			Tools:     true,
			Resources: cfg.Activity != nil,
			Prompts:   cfg.Activity != nil,
		},
	}

	var opts []mcpgo.Option
	if cfg.Instructions != "" {
		opts = append(opts, mcpgo.WithInstructions(cfg.Instructions))
	}

	s := &Server{
		srv:        mcpgo.NewServer(info, opts...),
		dispatcher: cfg.Dispatcher,
		logger:     logging.OrDiscard(cfg.Logger),
	}
	s.srv.Use(serverMiddleware(mcpgo.Recover()), serverMiddleware(mcpgo.RequestID()))

	for _, t := range cfg.Dispatcher.Tools() {
		s.register(t)
	}
	if cfg.Activity != nil {
		s.registerActivity(cfg.Activity)
	}
	return s
}

// serverMiddleware converts an mcp-go middleware to the server package's
// identically shaped Middleware type accepted by Use.
func serverMiddleware(m middleware.Middleware) server.Middleware {
	return func(next server.HandlerFunc) server.HandlerFunc {
		return server.HandlerFunc(m(middleware.HandlerFunc(next)))
	}
}

func (s *Server) register(t tool.Tool) {
	name := t.Name()
	s.srv.Tool(name).
		Description(Describe(t)).
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			return s.Call(ctx, name, input)
		})
	s.tools = append(s.tools, name)
}

// Call dispatches one tool call and returns the text sent to the client.
func (s *Server) Call(ctx context.Context, name string, input json.RawMessage) (string, error) {
	res, err := s.dispatcher.Dispatch(ctx, application.Request{Name: name, Arguments: input})
	if err != nil {
		return "", err
	}
	return res.OutputString(), nil
}

// Describe renders the description a client sees for t: the tool's own
// text, its behavior hints and an argument summary.
func Describe(t tool.Tool) string {
	var b strings.Builder
	b.WriteString(t.Description())
	if hints := t.Annotations().Hints(); hints != "" {
		b.WriteString(" " + hints)
	}
	if summary := t.InputSchema().Summary(); summary != "" {
		b.WriteString("\n\nArguments:\n" + summary)
	}
	return b.String()
}

// ToolNames returns the registered tool names in registration order.
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.tools...)
}

// Server returns the underlying mcp-go server.
func (s *Server) Server() *mcpgo.Server {
	return s.srv
}

// ServeStdio runs the server over stdin/stdout until ctx is done.
func (s *Server) ServeStdio(ctx context.Context, opts ...mcpgo.ServeOption) error {
	logging.NewEvent(s.logger.Info()).
		With(logging.Transport("stdio"), logging.Count(len(s.tools))).
		Msg("mcp server listening")
	return mcpgo.ServeStdio(ctx, s.srv, opts...)
}

// ServeHTTP runs the server over HTTP until ctx is done.
func (s *Server) ServeHTTP(ctx context.Context, addr string, opts ...mcpgo.HTTPOption) error {
	logging.NewEvent(s.logger.Info()).
		With(logging.Transport("http"), logging.Addr(addr), logging.Count(len(s.tools))).
		Msg("mcp server listening")
	return mcpgo.ServeHTTP(ctx, s.srv, addr, opts...)
}
