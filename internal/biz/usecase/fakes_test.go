package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// Mock implementations

type mockSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMockSettingsRepo(values map[string]string) *mockSettingsRepo {
	if values == nil {
		values = make(map[string]string)
	}
	return &mockSettingsRepo{values: values}
}

func (m *mockSettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockSettingsRepo) GetAll(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *mockSettingsRepo) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockSettingsRepo) SetMany(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

type mockMessageRepo struct {
	mu         sync.Mutex
	records    map[int64]*domain.MessageRecord
	nextID     int64
	createErr  error
	replyErr   error
	replyCalls int
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{records: make(map[int64]*domain.MessageRecord)}
}

func (m *mockMessageRepo) Create(ctx context.Context, msg domain.InboundMessage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.nextID++
	m.records[m.nextID] = &domain.MessageRecord{
		ID:         m.nextID,
		SenderID:   msg.SenderID,
		Text:       msg.Text,
		Status:     domain.MessageStatusReceived,
		ReceivedAt: msg.ReceivedAt,
	}
	return m.nextID, nil
}

func (m *mockMessageRepo) MarkReplied(ctx context.Context, id int64, reply domain.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyCalls++
	if m.replyErr != nil {
		return m.replyErr
	}
	rec, ok := m.records[id]
	if !ok {
		return repo.ErrNotFound
	}
	if rec.IsReplied() {
		return repo.ErrAlreadyReplied
	}
	text, latency, used := reply.Text, reply.Latency, reply.KnowledgeUsed
	rec.ReplyText = &text
	rec.ReplyLatency = &latency
	rec.KnowledgeUsed = &used
	rec.Status = domain.MessageStatusReplied
	return nil
}

func (m *mockMessageRepo) Get(ctx context.Context, id int64) (*domain.MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockMessageRepo) List(ctx context.Context, limit int) ([]*domain.MessageRecord, error) {
	return nil, nil
}

func (m *mockMessageRepo) ListBySender(ctx context.Context, senderID string, limit int) ([]*domain.MessageRecord, error) {
	return nil, nil
}

func (m *mockMessageRepo) Stats(ctx context.Context) (*domain.MessageStats, error) {
	return &domain.MessageStats{}, nil
}

type mockWhitelistRepo struct {
	senders map[string]bool
	err     error
}

func (m *mockWhitelistRepo) IsWhitelisted(ctx context.Context, senderID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.senders[senderID], nil
}

func (m *mockWhitelistRepo) Add(ctx context.Context, entry *domain.WhitelistEntry) (bool, error) {
	return true, nil
}

func (m *mockWhitelistRepo) Update(ctx context.Context, senderID, name, notes string) error {
	return nil
}

func (m *mockWhitelistRepo) Remove(ctx context.Context, senderID string) error {
	return nil
}

func (m *mockWhitelistRepo) List(ctx context.Context) ([]*domain.WhitelistEntry, error) {
	return nil, nil
}

type mockKnowledgeRepo struct {
	entries []*domain.KnowledgeEntry
	err     error
}

func (m *mockKnowledgeRepo) List(ctx context.Context) ([]*domain.KnowledgeEntry, error) {
	return m.entries, m.err
}

func (m *mockKnowledgeRepo) Get(ctx context.Context, id int64) (*domain.KnowledgeEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *mockKnowledgeRepo) Search(ctx context.Context, query string) ([]*domain.KnowledgeEntry, error) {
	var out []*domain.KnowledgeEntry
	for _, e := range m.entries {
		if strings.Contains(e.SearchableText(), strings.ToLower(query)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockKnowledgeRepo) Create(ctx context.Context, entry *domain.KnowledgeEntry) (int64, error) {
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append([]*domain.KnowledgeEntry{entry}, m.entries...)
	return entry.ID, nil
}

func (m *mockKnowledgeRepo) Update(ctx context.Context, entry *domain.KnowledgeEntry) error {
	for i, e := range m.entries {
		if e.ID == entry.ID {
			m.entries[i] = entry
			return nil
		}
	}
	return repo.ErrNotFound
}

func (m *mockKnowledgeRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

func (m *mockKnowledgeRepo) Categories(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.entries {
		if !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	return out, nil
}

type mockCompletionRepo struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []repo.CompletionRequest
}

func (m *mockCompletionRepo) Complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockDeliveryRepo struct {
	mu     sync.Mutex
	err    error
	status string
	calls  []repo.DeliveryRequest
}

func (m *mockDeliveryRepo) Send(ctx context.Context, req repo.DeliveryRequest) (*domain.DeliveryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.DeliveryResult{ProviderMessageID: "wamid-1"}, nil
}

func (m *mockDeliveryRepo) SessionStatus(ctx context.Context, apiKey, baseURL string) (string, error) {
	if apiKey == "" {
		return "", errors.New("missing key")
	}
	return m.status, nil
}

func noEnv(string) string { return "" }
