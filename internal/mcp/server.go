package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
	"github.com/textrelay/wa-assistant/internal/biz/usecase"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Server exposes the knowledge base, whitelist and message history as MCP tools
type Server struct {
	server    *mcp.Server
	knowledge *usecase.KnowledgeUsecase
	whitelist repo.WhitelistRepo
	messages  repo.MessageRepo
}

// NewServer creates the MCP server and registers its tools
func NewServer(version string, knowledge *usecase.KnowledgeUsecase, whitelist repo.WhitelistRepo, messages repo.MessageRepo) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "wa-assistant",
			Version: version,
		}, nil),
		knowledge: knowledge,
		whitelist: whitelist,
		messages:  messages,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_relevant",
		Description: "Select the knowledge entries the auto-reply would use for a message, and the context block built from them.",
	}, s.handleKnowledgeRelevant)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_search",
		Description: "Substring search over knowledge entry titles, content and tags.",
	}, s.handleKnowledgeSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "whitelist_check",
		Description: "Check whether a sender is allowed to receive automated replies.",
	}, s.handleWhitelistCheck)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "message_history",
		Description: "Recent inbound messages and their replies, optionally for one sender.",
	}, s.handleMessageHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "message_stats",
		Description: "Totals of received, replied and pending messages and the average response time.",
	}, s.handleMessageStats)
}

// KnowledgeView is a knowledge entry as returned by the tools
type KnowledgeView struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Tags      string `json:"tags,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// MessageView is a message record as returned by the tools
type MessageView struct {
	ID            int64   `json:"id"`
	Sender        string  `json:"sender"`
	Text          string  `json:"text"`
	Reply         string  `json:"reply,omitempty"`
	ResponseTime  float64 `json:"response_time,omitempty"`
	KnowledgeUsed bool    `json:"knowledge_used"`
	Status        string  `json:"status"`
	ReceivedAt    string  `json:"received_at"`
}

func knowledgeViews(entries []*domain.KnowledgeEntry) []KnowledgeView {
	views := make([]KnowledgeView, 0, len(entries))
	for _, e := range entries {
		views = append(views, KnowledgeView{
			ID:        e.ID,
			Title:     e.Title,
			Content:   e.Content,
			Category:  e.Category,
			Tags:      e.Tags,
			UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return views
}

func messageViews(records []*domain.MessageRecord) []MessageView {
	views := make([]MessageView, 0, len(records))
	for _, r := range records {
		v := MessageView{
			ID:         r.ID,
			Sender:     r.SenderID,
			Text:       r.Text,
			Status:     string(r.Status),
			ReceivedAt: r.ReceivedAt.UTC().Format(time.RFC3339),
		}
		if r.ReplyText != nil {
			v.Reply = *r.ReplyText
		}
		if r.ReplyLatency != nil {
			v.ResponseTime = *r.ReplyLatency
		}
		if r.KnowledgeUsed != nil {
			v.KnowledgeUsed = *r.KnowledgeUsed
		}
		views = append(views, v)
	}
	return views
}

// Run serves over stdio until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// ========== knowledge_relevant ==========

// KnowledgeRelevantInput is the input for knowledge_relevant
type KnowledgeRelevantInput struct {
	Message string `json:"message" jsonschema:"the inbound message text to match against"`
}

// KnowledgeRelevantOutput lists the selected entries and the rendered context
type KnowledgeRelevantOutput struct {
	Entries []KnowledgeView `json:"entries"`
	Context string                   `json:"context"`
}

func (s *Server) handleKnowledgeRelevant(ctx context.Context, req *mcp.CallToolRequest, input KnowledgeRelevantInput) (*mcp.CallToolResult, KnowledgeRelevantOutput, error) {
	all, err := s.knowledge.List(ctx)
	if err != nil {
		return nil, KnowledgeRelevantOutput{}, fmt.Errorf("load knowledge base: %w", err)
	}
	selected := usecase.Select(all, input.Message)
	return nil, KnowledgeRelevantOutput{
		Entries: knowledgeViews(selected),
		Context: domain.FormatKnowledge(selected),
	}, nil
}

// ========== knowledge_search ==========

// KnowledgeSearchInput is the input for knowledge_search
type KnowledgeSearchInput struct {
	Query string `json:"query" jsonschema:"text to look for"`
}

// KnowledgeSearchOutput contains matching entries
type KnowledgeSearchOutput struct {
	Entries []KnowledgeView `json:"entries"`
}

func (s *Server) handleKnowledgeSearch(ctx context.Context, req *mcp.CallToolRequest, input KnowledgeSearchInput) (*mcp.CallToolResult, KnowledgeSearchOutput, error) {
	entries, err := s.knowledge.Search(ctx, input.Query)
	if err != nil {
		return nil, KnowledgeSearchOutput{}, err
	}
	return nil, KnowledgeSearchOutput{Entries: knowledgeViews(entries)}, nil
}

// ========== whitelist_check ==========

// WhitelistCheckInput is the input for whitelist_check
type WhitelistCheckInput struct {
	Sender string `json:"sender" jsonschema:"sender number, a WhatsApp JID suffix is ignored"`
}

// WhitelistCheckOutput reports whether the sender is whitelisted
type WhitelistCheckOutput struct {
	Sender      string `json:"sender"`
	Whitelisted bool   `json:"whitelisted"`
}

func (s *Server) handleWhitelistCheck(ctx context.Context, req *mcp.CallToolRequest, input WhitelistCheckInput) (*mcp.CallToolResult, WhitelistCheckOutput, error) {
	sender := domain.StripJID(strings.TrimSpace(input.Sender))
	if sender == "" {
		return nil, WhitelistCheckOutput{}, fmt.Errorf("sender is required")
	}
	ok, err := s.whitelist.IsWhitelisted(ctx, sender)
	if err != nil {
		return nil, WhitelistCheckOutput{}, err
	}
	return nil, WhitelistCheckOutput{Sender: sender, Whitelisted: ok}, nil
}

// ========== message_history ==========

// MessageHistoryInput is the input for message_history
type MessageHistoryInput struct {
	Sender string `json:"sender,omitempty" jsonschema:"only messages from this sender"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of messages, default 20"`
}

// MessageHistoryOutput contains messages, newest first
type MessageHistoryOutput struct {
	Messages []MessageView `json:"messages"`
}

func (s *Server) handleMessageHistory(ctx context.Context, req *mcp.CallToolRequest, input MessageHistoryInput) (*mcp.CallToolResult, MessageHistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var (
		records []*domain.MessageRecord
		err     error
	)
	if sender := domain.StripJID(strings.TrimSpace(input.Sender)); sender != "" {
		records, err = s.messages.ListBySender(ctx, sender, limit)
	} else {
		records, err = s.messages.List(ctx, limit)
	}
	if err != nil {
		return nil, MessageHistoryOutput{}, err
	}
	return nil, MessageHistoryOutput{Messages: messageViews(records)}, nil
}

// ========== message_stats ==========

// MessageStatsInput is empty
type MessageStatsInput struct{}

// MessageStatsOutput summarizes the message history
type MessageStatsOutput struct {
	Total           int64   `json:"total"`
	Replied         int64   `json:"replied"`
	Pending         int64   `json:"pending"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

func (s *Server) handleMessageStats(ctx context.Context, req *mcp.CallToolRequest, input MessageStatsInput) (*mcp.CallToolResult, MessageStatsOutput, error) {
	stats, err := s.messages.Stats(ctx)
	if err != nil {
		return nil, MessageStatsOutput{}, err
	}
	return nil, MessageStatsOutput{
		Total:           stats.Total,
		Replied:         stats.Replied,
		Pending:         stats.Pending,
		AvgResponseTime: stats.AvgResponseTime,
	}, nil
}
