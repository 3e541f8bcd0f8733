package data

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

func openTestDB(t *testing.T, seeds map[string]string) *Repositories {
	t.Helper()
	repos, err := NewRepositories(context.Background(), Options{
		DatabasePath: filepath.Join(t.TempDir(), "nested", "assistant.db"),
		SettingSeeds: seeds,
	})
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func TestMessageRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repos := openTestDB(t, nil)
	r := repos.Message

	received := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	id, err := r.Create(ctx, domain.InboundMessage{SenderID: "15551234567", Text: "hello", ReceivedAt: received})
	require.NoError(t, err)

	rec, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusReceived, rec.Status)
	assert.Nil(t, rec.ReplyText)
	assert.Nil(t, rec.ReplyLatency)
	assert.Nil(t, rec.KnowledgeUsed)
	assert.True(t, rec.ReceivedAt.Equal(received))

	require.NoError(t, r.MarkReplied(ctx, id, domain.Reply{Text: "hi back", Latency: 2.5, KnowledgeUsed: true}))

	rec, err = r.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.IsReplied())
	assert.Equal(t, "hi back", *rec.ReplyText)
	assert.Equal(t, 2.5, *rec.ReplyLatency)
	assert.True(t, *rec.KnowledgeUsed)

	err = r.MarkReplied(ctx, id, domain.Reply{Text: "again"})
	assert.ErrorIs(t, err, repo.ErrAlreadyReplied)
	rec, _ = r.Get(ctx, id)
	assert.Equal(t, "hi back", *rec.ReplyText)

	err = r.MarkReplied(ctx, 999, domain.Reply{Text: "x"})
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestMessageRepo_ListAndStats(t *testing.T) {
	ctx := context.Background()
	r := openTestDB(t, nil).Message
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	var ids []int64
	for i, sender := range []string{"111", "222", "111"} {
		id, err := r.Create(ctx, domain.InboundMessage{SenderID: sender, Text: "m", ReceivedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, r.MarkReplied(ctx, ids[0], domain.Reply{Text: "a", Latency: 2}))
	require.NoError(t, r.MarkReplied(ctx, ids[1], domain.Reply{Text: "b", Latency: 4}))

	all, err := r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	limited, err := r.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	bySender, err := r.ListBySender(ctx, "111", 50)
	require.NoError(t, err)
	require.Len(t, bySender, 2)
	assert.Equal(t, ids[2], bySender[0].ID)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Replied)
	assert.Equal(t, int64(1), stats.Pending)
	assert.InDelta(t, 3.0, stats.AvgResponseTime, 0.0001)
}

func TestMessageRepo_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	r := openTestDB(t, nil).Message

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Create(ctx, domain.InboundMessage{SenderID: "111", Text: "burst"})
			if err == nil {
				err = r.MarkReplied(ctx, id, domain.Reply{Text: "ok"})
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stats.Replied)
}

func TestWhitelistRepo(t *testing.T) {
	ctx := context.Background()
	r := openTestDB(t, nil).Whitelist

	ok, err := r.IsWhitelisted(ctx, "15551234567")
	require.NoError(t, err)
	assert.False(t, ok)

	created, err := r.Add(ctx, &domain.WhitelistEntry{SenderID: "15551234567", Name: "Alex"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.Add(ctx, &domain.WhitelistEntry{SenderID: "15551234567", Name: "Other"})
	require.NoError(t, err)
	assert.False(t, created)

	ok, err = r.IsWhitelisted(ctx, "15551234567")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.Update(ctx, "15551234567", "Alex B", "friend"))
	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alex B", list[0].Name)
	assert.Equal(t, "friend", list[0].Notes)

	assert.ErrorIs(t, r.Update(ctx, "000", "x", ""), repo.ErrNotFound)
	require.NoError(t, r.Remove(ctx, "15551234567"))
	assert.ErrorIs(t, r.Remove(ctx, "15551234567"), repo.ErrNotFound)
}

func TestKnowledgeRepo(t *testing.T) {
	ctx := context.Background()
	r := openTestDB(t, nil).Knowledge.(*knowledgeRepo)

	clock := time.Unix(1000, 0)
	r.now = func() time.Time { return clock }

	first, err := r.Create(ctx, &domain.KnowledgeEntry{Title: "Vacation", Content: "Mexico in June", Tags: "travel"})
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	second, err := r.Create(ctx, &domain.KnowledgeEntry{Title: "Pets", Content: "Two cats", Category: "Home"})
	require.NoError(t, err)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, domain.DefaultCategory, list[1].Category)

	clock = clock.Add(time.Minute)
	entry := list[1]
	entry.Content = "Mexico in July"
	require.NoError(t, r.Update(ctx, entry))

	list, err = r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, list[0].ID, "updated entry moves to the front")

	found, err := r.Search(ctx, "TRAVEL")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, first, found[0].ID)

	found, err = r.Search(ctx, "100%")
	require.NoError(t, err)
	assert.Empty(t, found)

	cats, err := r.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"General", "Home"}, cats)

	require.NoError(t, r.Delete(ctx, second))
	_, err = r.Get(ctx, second)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestSettingsRepo_SeedAndUpsert(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "assistant.db")

	repos, err := NewRepositories(ctx, Options{
		DatabasePath: dbPath,
		SettingSeeds: map[string]string{"response_delay": "4", "auto_reply_enabled": "true"},
	})
	require.NoError(t, err)
	r := repos.Settings

	v, found, err := r.Get(ctx, "response_delay")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "4", v)

	_, found, err = r.Get(ctx, "grok_api_key")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Set(ctx, "response_delay", "10"))
	require.NoError(t, r.SetMany(ctx, map[string]string{"auto_reply_enabled": "false", "my_name": "Sam"}))
	require.NoError(t, repos.Close())

	// reopening must not overwrite stored values with seeds
	repos, err = NewRepositories(ctx, Options{
		DatabasePath: dbPath,
		SettingSeeds: map[string]string{"response_delay": "4", "auto_reply_enabled": "true"},
	})
	require.NoError(t, err)
	defer repos.Close()

	all, err := repos.Settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", all["response_delay"])
	assert.Equal(t, "false", all["auto_reply_enabled"])
	assert.Equal(t, "Sam", all["my_name"])
}
