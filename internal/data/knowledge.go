package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// knowledgeRepo implements the knowledge base repository
type knowledgeRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewKnowledgeRepo creates a new knowledge base repository
func NewKnowledgeRepo(db *sql.DB) repo.KnowledgeRepo {
	return &knowledgeRepo{db: db, now: time.Now}
}

const knowledgeColumns = `id, title, content, category, tags, created_at, updated_at`

// List returns every entry, most recently updated first
func (r *knowledgeRepo) List(ctx context.Context) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+knowledgeColumns+` FROM knowledge_base
		ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge: %w", err)
	}
	return collectKnowledge(rows)
}

// Get returns one entry
func (r *knowledgeRepo) Get(ctx context.Context, id int64) (*domain.KnowledgeEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_base WHERE id = ?`, id)
	e, err := scanKnowledge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("knowledge entry %d: %w", id, repo.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge entry: %w", err)
	}
	return e, nil
}

// Search matches query as a substring of title, content or tags
func (r *knowledgeRepo) Search(ctx context.Context, query string) ([]*domain.KnowledgeEntry, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+knowledgeColumns+` FROM knowledge_base
		WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, id DESC
	`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	return collectKnowledge(rows)
}

// Create inserts an entry
func (r *knowledgeRepo) Create(ctx context.Context, entry *domain.KnowledgeEntry) (int64, error) {
	now := r.now().Unix()
	category := entry.Category
	if category == "" {
		category = domain.DefaultCategory
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO knowledge_base (title, content, category, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.Title, entry.Content, category, entry.Tags, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create knowledge entry: %w", err)
	}
	return res.LastInsertId()
}

// Update replaces an entry's fields and bumps its update time
func (r *knowledgeRepo) Update(ctx context.Context, entry *domain.KnowledgeEntry) error {
	category := entry.Category
	if category == "" {
		category = domain.DefaultCategory
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE knowledge_base
		SET title = ?, content = ?, category = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, entry.Title, entry.Content, category, entry.Tags, r.now().Unix(), entry.ID)
	if err != nil {
		return fmt.Errorf("failed to update knowledge entry: %w", err)
	}
	return expectOne(res, fmt.Sprintf("knowledge entry %d", entry.ID))
}

// Delete removes an entry
func (r *knowledgeRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM knowledge_base WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	return expectOne(res, fmt.Sprintf("knowledge entry %d", id))
}

// Categories returns the distinct categories, sorted
func (r *knowledgeRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM knowledge_base ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanKnowledge(s scanner) (*domain.KnowledgeEntry, error) {
	var e domain.KnowledgeEntry
	var createdAt, updatedAt int64
	if err := s.Scan(&e.ID, &e.Title, &e.Content, &e.Category, &e.Tags, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)
	return &e, nil
}

func collectKnowledge(rows *sql.Rows) ([]*domain.KnowledgeEntry, error) {
	defer rows.Close()
	var out []*domain.KnowledgeEntry
	for rows.Next() {
		e, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
