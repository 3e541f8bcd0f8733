package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
	"github.com/textrelay/wa-assistant/internal/observability"
)

const alertTimeout = 10 * time.Second

// Processor runs one inbound message to completion
type Processor interface {
	Process(ctx context.Context, msg domain.InboundMessage) *domain.ProcessResult
}

// RelayService hands inbound messages to the pipeline without blocking the caller
type RelayService struct {
	pipeline Processor
	notifier repo.NotifyRepo
	metrics  *observability.Metrics

	wg  sync.WaitGroup
	now func() time.Time
}

// NewRelayService creates a relay service. notifier may be nil.
func NewRelayService(pipeline Processor, notifier repo.NotifyRepo, metrics *observability.Metrics) *RelayService {
	return &RelayService{
		pipeline: pipeline,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Dispatch starts an independent pipeline run and returns immediately.
// The run keeps ctx's values but not its cancellation, so finishing the
// webhook request never aborts it. There is no ordering between runs.
func (s *RelayService) Dispatch(ctx context.Context, senderID, text string) {
	msg := domain.InboundMessage{
		SenderID:   senderID,
		Text:       text,
		ReceivedAt: s.now(),
	}
	runCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	s.metrics.RunStarted()
	go func() {
		defer s.wg.Done()
		s.run(runCtx, msg)
	}()
}

func (s *RelayService) run(ctx context.Context, msg domain.InboundMessage) {
	var res *domain.ProcessResult
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "relay").Str("sender", msg.SenderID).Interface("panic", r).Msg("pipeline run panicked")
			res = &domain.ProcessResult{Outcome: domain.OutcomeFailed, Err: fmt.Errorf("panic: %v", r)}
		}
		s.metrics.RunFinished(res)
	}()

	res = s.pipeline.Process(ctx, msg)
	s.alert(ctx, msg, res)
}

// alert tells the operator about senders who were ignored or replies that
// could not be produced. The original sender is never messaged.
func (s *RelayService) alert(ctx context.Context, msg domain.InboundMessage, res *domain.ProcessResult) {
	if s.notifier == nil || res == nil {
		return
	}

	var text string
	switch {
	case res.Outcome == domain.OutcomeGatedOut && res.Gate == domain.GateUnauthorized:
		text = fmt.Sprintf("Message from non-whitelisted sender %s: %q", msg.SenderID, truncate(msg.Text, 120))
	case res.Outcome == domain.OutcomeFailed && (res.Stage == domain.StageGenerate || res.Stage == domain.StageDeliver):
		text = fmt.Sprintf("Auto-reply to %s failed at %s: %v", msg.SenderID, res.Stage, res.Err)
	default:
		return
	}

	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()
	err := s.notifier.Notify(ctx, text)
	s.metrics.Alert(err)
	if err != nil {
		log.Warn().Str("component", "relay").Err(err).Msg("operator alert failed")
	}
}

// Wait blocks until every dispatched run has finished or ctx is done.
// It never cancels runs.
func (s *RelayService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight replies: %w", ctx.Err())
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
