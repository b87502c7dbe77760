// Package mcpserver exposes the relevance classifier as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/bgdnvk/topicguard/internal/relevance"
)

const (
	ToolClassify = "classify_query"
	ToolSuggest  = "suggest_topics"
	ToolTopics   = "list_topics"
)

// Server holds the classifier and defaults used by the tool handlers.
type Server struct {
	classifier     *relevance.Classifier
	threshold      float64
	maxSuggestions int
	version        string
	logger         zerolog.Logger
}

type Option func(*Server)

func WithThreshold(threshold float64) Option {
	return func(s *Server) { s.threshold = threshold }
}

func WithMaxSuggestions(n int) Option {
	return func(s *Server) { s.maxSuggestions = n }
}

func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func New(clf *relevance.Classifier, opts ...Option) *Server {
	s := &Server{
		classifier:     clf,
		threshold:      relevance.DefaultThreshold,
		maxSuggestions: relevance.DefaultMaxSuggestions,
		version:        "dev",
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MCP builds the protocol server with every tool registered.
func (s *Server) MCP() *server.MCPServer {
	srv := server.NewMCPServer("topicguard", s.version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool(ToolClassify,
		mcp.WithDescription("Decide whether a query is about data structures and algorithms"),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user query to classify")),
		mcp.WithNumber("threshold", mcp.Description("Minimum combined score for a relevant query")),
	), s.handleClassify)

	srv.AddTool(mcp.NewTool(ToolSuggest,
		mcp.WithDescription("Rank reference DSA topics by semantic similarity to a query"),
		mcp.WithString("query", mcp.Required(), mcp.Description("The query to find related topics for")),
		mcp.WithNumber("max", mcp.Description("Maximum number of topics to return")),
	), s.handleSuggest)

	srv.AddTool(mcp.NewTool(ToolTopics,
		mcp.WithDescription("List lexicon terms grouped by category"),
		mcp.WithString("category",
			mcp.Description("Restrict the listing to one category"),
			mcp.Enum("data_structures", "algorithms", "complexity", "techniques", "problem_types"),
		),
	), s.handleTopics)

	return srv
}

// ServeStdio blocks serving MCP over stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCP())
}

func (s *Server) handleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	threshold := req.GetFloat("threshold", s.threshold)
	if threshold < 0 || threshold > 1 {
		return mcp.NewToolResultError(fmt.Sprintf("threshold %v out of range [0, 1]", threshold)), nil
	}

	result := s.classifier.Classify(ctx, query, threshold)
	s.logger.Debug().
		Str("tool", ToolClassify).
		Bool("relevant", result.IsDSARelated).
		Float64("confidence", result.Confidence).
		Msg("Tool call")
	return jsonResult(result)
}

func (s *Server) handleSuggest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("max", s.maxSuggestions)

	topics := s.classifier.SuggestRelatedTopics(ctx, query, limit)
	s.logger.Debug().Str("tool", ToolSuggest).Int("topics", len(topics)).Msg("Tool call")
	return jsonResult(map[string]any{
		"topics":           topics,
		"semantic_enabled": s.classifier.SemanticEnabled(),
	})
}

func (s *Server) handleTopics(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := relevance.CategoryUnknown
	if name := req.GetString("category", ""); name != "" {
		parsed, err := relevance.ParseCategory(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		category = parsed
	}
	return jsonResult(s.classifier.TopicsByCategory(category))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
