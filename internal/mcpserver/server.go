// Package mcpserver exposes the question service as Model Context Protocol
// tools so that editors and agents can ask the TA directly over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/qa"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolAskQuestion = "ask_question"
	ToolCorpusStats = "corpus_stats"
)

// Answerer answers a single question.
type Answerer interface {
	Process(ctx context.Context, question string, image *string) qa.Answer
}

// StatsSource reports the ingested corpus size.
type StatsSource interface {
	Stats() ingest.Stats
}

// Config configures a Server.
type Config struct {
	Name     string
	Version  string
	Answerer Answerer
	Corpus   StatsSource
	Logger   *slog.Logger
}

// Server wraps an MCP server with the TA's tools registered.
type Server struct {
	mcp      *server.MCPServer
	answerer Answerer
	corpus   StatsSource
	logger   *slog.Logger
}

// New builds a Server. Answerer is required; corpus_stats is only
// registered when a Corpus is given.
func New(cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "tdsta"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		mcp:      server.NewMCPServer(cfg.Name, cfg.Version, server.WithToolCapabilities(false)),
		answerer: cfg.Answerer,
		corpus:   cfg.Corpus,
		logger:   cfg.Logger.With("component", "mcp"),
	}

	s.mcp.AddTool(mcp.NewTool(ToolAskQuestion,
		mcp.WithDescription("Answer a Tools in Data Science course question. Returns JSON with an answer and supporting links."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The student's question")),
		mcp.WithString("image", mcp.Description("Optional base64-encoded screenshot")),
	), s.handleAsk)

	if s.corpus != nil {
		s.mcp.AddTool(mcp.NewTool(ToolCorpusStats,
			mcp.WithDescription("Report the size and last refresh time of the ingested course corpus."),
		), s.handleStats)
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves the tools over stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question must not be empty"), nil
	}

	var image *string
	if v, ok := req.GetArguments()["image"].(string); ok {
		image = &v
	}

	ans := s.answerer.Process(ctx, question, image)
	if ans.Links == nil {
		ans.Links = []knowledge.Link{}
	}
	return jsonResult(ans)
}

func (s *Server) handleStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.corpus.Stats())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
