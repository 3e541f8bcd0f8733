package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

const testSender = "15551234567"

type pipelineFixture struct {
	messages   *mockMessageRepo
	whitelist  *mockWhitelistRepo
	settings   *mockSettingsRepo
	knowledge  *mockKnowledgeRepo
	completion *mockCompletionRepo
	delivery   *mockDeliveryRepo
	slept      []time.Duration
	clock      time.Time
	pipeline   *PipelineUsecase
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		messages:  newMockMessageRepo(),
		whitelist: &mockWhitelistRepo{senders: map[string]bool{testSender: true}},
		settings: newMockSettingsRepo(map[string]string{
			domain.SettingGrokAPIKey:     "grok-key",
			domain.SettingWasenderAPIKey: "wa-key",
			domain.SettingResponseDelay:  "0",
		}),
		knowledge:  &mockKnowledgeRepo{},
		completion: &mockCompletionRepo{reply: "on my way!"},
		delivery:   &mockDeliveryRepo{},
		clock:      time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local),
	}

	settings := NewSettingsUsecase(f.settings, nil).WithEnv(noEnv)
	f.pipeline = NewPipelineUsecase(
		f.messages,
		f.whitelist,
		settings,
		NewKnowledgeUsecase(f.knowledge),
		NewResponderUsecase(f.completion, settings),
		NewDeliveryUsecase(f.delivery, settings),
	).WithClock(
		func() time.Time {
			now := f.clock
			f.clock = f.clock.Add(time.Second)
			return now
		},
		func(d time.Duration) { f.slept = append(f.slept, d) },
	)
	return f
}

func (f *pipelineFixture) process(text string) *domain.ProcessResult {
	return f.pipeline.Process(context.Background(), domain.InboundMessage{SenderID: testSender, Text: text})
}

func (f *pipelineFixture) record(t *testing.T, id int64) *domain.MessageRecord {
	t.Helper()
	rec, err := f.messages.Get(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func TestPipeline_RepliesWithKnowledge(t *testing.T) {
	f := newPipelineFixture()
	f.knowledge.entries = []*domain.KnowledgeEntry{
		entry(1, "Vacation", "Going to Mexico in June", "Personal"),
		entry(2, "Pets", "Two cats", "Personal"),
	}

	res := f.process("Where are you going on vacation?")
	assert.Equal(t, domain.OutcomeReplied, res.Outcome)
	assert.True(t, res.KnowledgeUsed)
	assert.Equal(t, "wamid-1", res.ProviderMsgID)

	require.Len(t, f.completion.calls, 1)
	assert.Contains(t, f.completion.calls[0].SystemPrompt, "[Personal] Vacation\nGoing to Mexico in June")
	assert.NotContains(t, f.completion.calls[0].SystemPrompt, "Two cats")
	assert.Equal(t, float32(0.8), f.completion.calls[0].Temperature)

	require.Len(t, f.delivery.calls, 1)
	assert.Equal(t, "+"+testSender, f.delivery.calls[0].To)
	assert.Equal(t, "on my way!", f.delivery.calls[0].Text)

	rec := f.record(t, res.MessageID)
	assert.Equal(t, domain.MessageStatusReplied, rec.Status)
	require.NotNil(t, rec.ReplyText)
	assert.Equal(t, "on my way!", *rec.ReplyText)
	require.NotNil(t, rec.KnowledgeUsed)
	assert.True(t, *rec.KnowledgeUsed)
	require.NotNil(t, rec.ReplyLatency)
	assert.Greater(t, *rec.ReplyLatency, 0.0)
	assert.Empty(t, f.slept)
}

func TestPipeline_Gates(t *testing.T) {
	t.Run("unauthorized sender", func(t *testing.T) {
		f := newPipelineFixture()
		f.whitelist.senders = map[string]bool{}

		res := f.process("hello")
		assert.Equal(t, domain.OutcomeGatedOut, res.Outcome)
		assert.Equal(t, domain.GateUnauthorized, res.Gate)
		assert.Equal(t, domain.MessageStatusReceived, f.record(t, res.MessageID).Status)
		assert.Empty(t, f.completion.calls)
		assert.Empty(t, f.delivery.calls)
	})

	t.Run("whitelist lookup error fails closed", func(t *testing.T) {
		f := newPipelineFixture()
		f.whitelist.err = errors.New("db locked")

		res := f.process("hello")
		assert.Equal(t, domain.GateUnauthorized, res.Gate)
		assert.Empty(t, f.completion.calls)
	})

	t.Run("auto reply disabled", func(t *testing.T) {
		f := newPipelineFixture()
		f.settings.values[domain.SettingAutoReplyEnabled] = "false"

		res := f.process("hello")
		assert.Equal(t, domain.GateDisabled, res.Gate)
		assert.Empty(t, f.completion.calls)
	})

	t.Run("outside active hours", func(t *testing.T) {
		f := newPipelineFixture()
		f.settings.values[domain.SettingActiveHoursStart] = "22:00"
		f.settings.values[domain.SettingActiveHoursEnd] = "06:00"

		res := f.process("hello")
		assert.Equal(t, domain.GateOutsideHours, res.Gate)
		assert.Equal(t, int64(1), res.MessageID)
		assert.Empty(t, f.delivery.calls)
	})

	t.Run("wrapping window open at night", func(t *testing.T) {
		f := newPipelineFixture()
		f.clock = time.Date(2024, 3, 10, 23, 30, 0, 0, time.Local)
		f.settings.values[domain.SettingActiveHoursStart] = "22:00"
		f.settings.values[domain.SettingActiveHoursEnd] = "06:00"

		res := f.process("hello")
		assert.Equal(t, domain.OutcomeReplied, res.Outcome)
	})

	t.Run("invalid window is open", func(t *testing.T) {
		f := newPipelineFixture()
		f.settings.values[domain.SettingActiveHoursStart] = "late"

		res := f.process("hello")
		assert.Equal(t, domain.OutcomeReplied, res.Outcome)
	})
}

func TestPipeline_DelayAndFallbacks(t *testing.T) {
	f := newPipelineFixture()
	f.settings.values[domain.SettingResponseDelay] = "3"
	f.settings.values[domain.SettingAITemperature] = "not-a-number"
	f.knowledge.entries = []*domain.KnowledgeEntry{
		entry(1, "A", "a", "General"),
		entry(2, "B", "b", "General"),
		entry(3, "C", "c", "General"),
		entry(4, "D", "d", "General"),
	}

	res := f.process("hi")
	assert.Equal(t, domain.OutcomeReplied, res.Outcome)
	assert.Equal(t, []time.Duration{3 * time.Second}, f.slept)

	require.Len(t, f.completion.calls, 1)
	req := f.completion.calls[0]
	assert.Equal(t, float32(0.8), req.Temperature)
	assert.Contains(t, req.SystemPrompt, "[General] A\na\n\n---\n\n[General] B\nb\n\n---\n\n[General] C\nc")
	assert.NotContains(t, req.SystemPrompt, "[General] D")
	assert.True(t, res.KnowledgeUsed)
}

func TestPipeline_EmptyKnowledgeBase(t *testing.T) {
	f := newPipelineFixture()

	res := f.process("hello")
	assert.Equal(t, domain.OutcomeReplied, res.Outcome)
	assert.False(t, res.KnowledgeUsed)
	assert.NotContains(t, f.completion.calls[0].SystemPrompt, "MY KNOWLEDGE")

	rec := f.record(t, res.MessageID)
	require.NotNil(t, rec.KnowledgeUsed)
	assert.False(t, *rec.KnowledgeUsed)
}

func TestPipeline_Failures(t *testing.T) {
	t.Run("persist failure ends the run", func(t *testing.T) {
		f := newPipelineFixture()
		f.messages.createErr = errors.New("disk full")

		res := f.process("hello")
		assert.Equal(t, domain.OutcomeFailed, res.Outcome)
		assert.Equal(t, domain.StagePersist, res.Stage)
		assert.Empty(t, f.completion.calls)
	})

	t.Run("missing AI credential", func(t *testing.T) {
		f := newPipelineFixture()
		delete(f.settings.values, domain.SettingGrokAPIKey)

		res := f.process("hello")
		assert.Equal(t, domain.OutcomeFailed, res.Outcome)
		assert.Equal(t, domain.StageGenerate, res.Stage)
		assert.True(t, domain.IsConfigurationError(res.Err))
		assert.Empty(t, f.delivery.calls)
		assert.Equal(t, domain.MessageStatusReceived, f.record(t, res.MessageID).Status)
	})

	t.Run("delivery rate limited", func(t *testing.T) {
		f := newPipelineFixture()
		f.delivery.err = &domain.ProviderError{Provider: "wasender", Kind: domain.ErrorKindRateLimit, StatusCode: 429}

		res := f.process("hello")
		assert.Equal(t, domain.StageDeliver, res.Stage)
		assert.Equal(t, domain.ErrorKindRateLimit, domain.KindOf(res.Err))
		require.Len(t, f.completion.calls, 1)
		require.Len(t, f.delivery.calls, 1)
		assert.Equal(t, 0, f.messages.replyCalls)

		rec := f.record(t, res.MessageID)
		assert.Equal(t, domain.MessageStatusReceived, rec.Status)
		assert.Nil(t, rec.ReplyText)
	})

	t.Run("reply recording failure after send", func(t *testing.T) {
		f := newPipelineFixture()
		f.messages.replyErr = errors.New("readonly database")

		res := f.process("hello")
		assert.Equal(t, domain.OutcomeFailed, res.Outcome)
		assert.Equal(t, domain.StageRecord, res.Stage)
		assert.Len(t, f.delivery.calls, 1)
	})
}

func TestPipeline_ConcurrentSameSender(t *testing.T) {
	f := newPipelineFixture()
	// clock is shared; freeze it for concurrent runs
	fixed := f.clock
	f.pipeline.WithClock(func() time.Time { return fixed }, func(time.Duration) {})

	done := make(chan *domain.ProcessResult, 2)
	for _, text := range []string{"first", "second"} {
		go func(text string) {
			done <- f.process(text)
		}(text)
	}
	a, b := <-done, <-done

	assert.NotEqual(t, a.MessageID, b.MessageID)
	assert.Equal(t, domain.OutcomeReplied, a.Outcome)
	assert.Equal(t, domain.OutcomeReplied, b.Outcome)
	assert.Len(t, f.completion.calls, 2)
	assert.Len(t, f.delivery.calls, 2)
}
