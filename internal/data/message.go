package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// messageRepo implements the message history repository
type messageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new message history repository
func NewMessageRepo(db *sql.DB) repo.MessageRepo {
	return &messageRepo{db: db}
}

// Create stores an inbound message
func (r *messageRepo) Create(ctx context.Context, msg domain.InboundMessage) (int64, error) {
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO message_history (from_number, message_text, status, timestamp)
		VALUES (?, ?, ?, ?)
	`, msg.SenderID, msg.Text, string(domain.MessageStatusReceived), receivedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to save message: %w", err)
	}
	return res.LastInsertId()
}

// MarkReplied writes the reply fields and status in one guarded update
func (r *messageRepo) MarkReplied(ctx context.Context, id int64, reply domain.Reply) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE message_history
		SET response_text = ?, response_time = ?, knowledge_used = ?, status = ?
		WHERE id = ? AND status = ?
	`, reply.Text, reply.Latency, yesNo(reply.KnowledgeUsed), string(domain.MessageStatusReplied),
		id, string(domain.MessageStatusReceived))
	if err != nil {
		return fmt.Errorf("failed to record reply: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record reply: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return repo.ErrAlreadyReplied
}

const messageColumns = `id, from_number, message_text, response_text, response_time, knowledge_used, status, timestamp`

// Get returns one message
func (r *messageRepo) Get(ctx context.Context, id int64) (*domain.MessageRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM message_history WHERE id = ?`, id)
	rec, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d: %w", id, repo.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return rec, nil
}

// List returns the most recent messages
func (r *messageRepo) List(ctx context.Context, limit int) ([]*domain.MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM message_history
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return collectMessages(rows)
}

// ListBySender returns the most recent messages from one sender
func (r *messageRepo) ListBySender(ctx context.Context, senderID string, limit int) ([]*domain.MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM message_history
		WHERE from_number = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, senderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return collectMessages(rows)
}

// Stats summarizes the history
func (r *messageRepo) Stats(ctx context.Context) (*domain.MessageStats, error) {
	var stats domain.MessageStats
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'replied' THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN status = 'replied' THEN response_time END)
		FROM message_history
	`).Scan(&stats.Total, &stats.Replied, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	stats.Pending = stats.Total - stats.Replied
	if avg.Valid {
		stats.AvgResponseTime = avg.Float64
	}
	return &stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*domain.MessageRecord, error) {
	var rec domain.MessageRecord
	var replyText, knowledgeUsed sql.NullString
	var latency sql.NullFloat64
	var status string
	var ts int64
	if err := s.Scan(&rec.ID, &rec.SenderID, &rec.Text, &replyText, &latency, &knowledgeUsed, &status, &ts); err != nil {
		return nil, err
	}
	rec.Status = domain.MessageStatus(status)
	rec.ReceivedAt = time.UnixMilli(ts)
	if replyText.Valid {
		rec.ReplyText = &replyText.String
	}
	if latency.Valid {
		rec.ReplyLatency = &latency.Float64
	}
	if knowledgeUsed.Valid {
		used := knowledgeUsed.String == "Yes"
		rec.KnowledgeUsed = &used
	}
	return &rec, nil
}

func collectMessages(rows *sql.Rows) ([]*domain.MessageRecord, error) {
	defer rows.Close()
	var out []*domain.MessageRecord
	for rows.Next() {
		rec, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
