// Package server exposes the gateway as an MCP tool over stdio.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/sudo-mcp/internal/executor"
)

// ToolName is the name the execute tool is registered under.
const ToolName = "execute_sudo_command"

const toolDescription = "Execute a shell command with root privileges. " +
	"The user is prompted to authorise each command through the polkit agent. " +
	"Commands matching the configured blocklist are refused and never run. " +
	"Every attempt is written to the audit log."

// Handler runs one command request end to end.
type Handler interface {
	Handle(ctx context.Context, command string, timeoutSeconds int) executor.Result
}

// Options configures a Server.
type Options struct {
	Name    string // defaults to "sudo-mcp"
	Version string
	// DefaultTimeoutSeconds is advertised in the tool schema and used when
	// the caller omits timeoutSeconds.
	DefaultTimeoutSeconds int
	Logger                *slog.Logger
}

// Server is the MCP front end. Each tool call runs on its own goroutine
// inside mcp-go; the Handler must be safe for concurrent use.
type Server struct {
	handler        Handler
	defaultTimeout int
	logger         *slog.Logger
	mcp            *mcpserver.MCPServer
}

// New creates a Server with the execute tool registered.
func New(h Handler, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "sudo-mcp"
	}
	if opts.DefaultTimeoutSeconds <= 0 {
		opts.DefaultTimeoutSeconds = executor.DefaultTimeoutSeconds
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		handler:        h,
		defaultTimeout: opts.DefaultTimeoutSeconds,
		logger:         opts.Logger,
		mcp: mcpserver.NewMCPServer(opts.Name, opts.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
	}

	tool := mcp.NewTool(ToolName,
		mcp.WithDescription(toolDescription),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The shell command to execute with elevated privileges"),
		),
		mcp.WithNumber("timeoutSeconds",
			mcp.Description(fmt.Sprintf("Maximum execution time in seconds (default %d)", s.defaultTimeout)),
			mcp.DefaultNumber(float64(s.defaultTimeout)),
		),
	)
	s.mcp.AddTool(tool, s.handleExecute)
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

// ServeStdio serves JSON-RPC on in/out until ctx is cancelled or in reaches
// EOF. Diagnostics go to the logger, never to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio", "tool", ToolName)
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) handleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeout := req.GetInt("timeoutSeconds", s.defaultTimeout)
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}

	result := s.handler.Handle(ctx, command, timeout)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
