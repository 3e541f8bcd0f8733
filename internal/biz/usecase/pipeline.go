package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

var tracer = otel.Tracer("github.com/textrelay/wa-assistant/pipeline")

// PipelineUsecase runs one inbound message through persist, gates, reply
// generation, delivery and reply recording
type PipelineUsecase struct {
	messages  repo.MessageRepo
	whitelist repo.WhitelistRepo
	settings  *SettingsUsecase
	knowledge *KnowledgeUsecase
	responder *ResponderUsecase
	delivery  *DeliveryUsecase

	now   func() time.Time
	sleep func(time.Duration)
}

// NewPipelineUsecase creates a new pipeline usecase
func NewPipelineUsecase(
	messages repo.MessageRepo,
	whitelist repo.WhitelistRepo,
	settings *SettingsUsecase,
	knowledge *KnowledgeUsecase,
	responder *ResponderUsecase,
	delivery *DeliveryUsecase,
) *PipelineUsecase {
	return &PipelineUsecase{
		messages:  messages,
		whitelist: whitelist,
		settings:  settings,
		knowledge: knowledge,
		responder: responder,
		delivery:  delivery,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// WithClock replaces the wall clock and the delay sleeper
func (uc *PipelineUsecase) WithClock(now func() time.Time, sleep func(time.Duration)) *PipelineUsecase {
	uc.now = now
	uc.sleep = sleep
	return uc
}

// Process handles one inbound message. It never returns an error: the result
// tells how the run ended, and nothing is ever sent back on failure.
func (uc *PipelineUsecase) Process(ctx context.Context, msg domain.InboundMessage) *domain.ProcessResult {
	ctx, span := tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("message.sender", msg.SenderID)))
	defer span.End()

	start := uc.now()
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = start
	}
	result := &domain.ProcessResult{}
	logger := log.With().Str("component", "pipeline").Str("sender", msg.SenderID).Logger()

	id, err := uc.messages.Create(ctx, msg)
	if err != nil {
		return uc.fail(span, logger, result, domain.StagePersist, err)
	}
	result.MessageID = id
	span.SetAttributes(attribute.Int64("message.id", id))
	logger = logger.With().Int64("message_id", id).Logger()

	// Gates
	authorized, err := uc.whitelist.IsWhitelisted(ctx, msg.SenderID)
	if err != nil {
		logger.Error().Err(err).Msg("whitelist lookup failed, treating sender as unauthorized")
		authorized = false
	}
	if !authorized {
		return uc.gate(span, logger, result, domain.GateUnauthorized)
	}
	if !uc.settings.Bool(ctx, domain.SettingAutoReplyEnabled) {
		return uc.gate(span, logger, result, domain.GateDisabled)
	}
	hoursStart := uc.settings.Get(ctx, domain.SettingActiveHoursStart)
	hoursEnd := uc.settings.Get(ctx, domain.SettingActiveHoursEnd)
	if !domain.WithinActiveHours(hoursStart, hoursEnd, uc.now()) {
		return uc.gate(span, logger, result, domain.GateOutsideHours)
	}

	if delay := uc.settings.Int(ctx, domain.SettingResponseDelay); delay > 0 {
		span.AddEvent("delay", trace.WithAttributes(attribute.Int("seconds", delay)))
		uc.sleep(time.Duration(delay) * time.Second)
	}

	knowledgeContext := uc.knowledge.Relevant(ctx, msg.Text)
	result.KnowledgeUsed = knowledgeContext != ""

	genCtx, genSpan := tracer.Start(ctx, "pipeline.generate")
	reply, err := uc.responder.Generate(genCtx, GenerateRequest{
		UserMessage:      msg.Text,
		KnowledgeContext: knowledgeContext,
		SystemPrompt:     uc.settings.Get(ctx, domain.SettingSystemPrompt),
		Temperature:      uc.settings.Float(ctx, domain.SettingAITemperature, domain.DefaultTemperature),
		Persona:          uc.settings.Persona(ctx),
	})
	endSpan(genSpan, err)
	if err != nil {
		return uc.fail(span, logger, result, domain.StageGenerate, err)
	}

	sendCtx, sendSpan := tracer.Start(ctx, "pipeline.deliver")
	sent, err := uc.delivery.Send(sendCtx, msg.SenderID, reply)
	endSpan(sendSpan, err)
	if err != nil {
		return uc.fail(span, logger, result, domain.StageDeliver, err)
	}
	if sent != nil {
		result.ProviderMsgID = sent.ProviderMessageID
	}

	latency := uc.now().Sub(start)
	err = uc.messages.MarkReplied(ctx, id, domain.Reply{
		Text:          reply,
		Latency:       latency.Seconds(),
		KnowledgeUsed: result.KnowledgeUsed,
	})
	if err != nil {
		return uc.fail(span, logger, result, domain.StageRecord, err)
	}

	result.Outcome = domain.OutcomeReplied
	result.Latency = latency
	span.SetAttributes(
		attribute.String("pipeline.outcome", string(result.Outcome)),
		attribute.Bool("pipeline.knowledge_used", result.KnowledgeUsed),
	)
	logger.Info().
		Dur("latency", latency).
		Bool("knowledge_used", result.KnowledgeUsed).
		Msg("replied")
	return result
}

func (uc *PipelineUsecase) gate(span trace.Span, logger zerolog.Logger, result *domain.ProcessResult, reason domain.GateReason) *domain.ProcessResult {
	result.Outcome = domain.OutcomeGatedOut
	result.Gate = reason
	span.SetAttributes(
		attribute.String("pipeline.outcome", string(result.Outcome)),
		attribute.String("pipeline.gate", string(reason)),
	)
	logger.Info().Str("gate", string(reason)).Msg("no reply")
	return result
}

func (uc *PipelineUsecase) fail(span trace.Span, logger zerolog.Logger, result *domain.ProcessResult, stage domain.Stage, err error) *domain.ProcessResult {
	result.Outcome = domain.OutcomeFailed
	result.Stage = stage
	result.Err = err
	span.SetAttributes(
		attribute.String("pipeline.outcome", string(result.Outcome)),
		attribute.String("pipeline.stage", string(stage)),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	ev := logger.Error().Err(err).Str("stage", string(stage))
	if kind := domain.KindOf(err); kind != "" {
		ev = ev.Str("kind", string(kind))
	}
	if domain.IsConfigurationError(err) {
		ev = ev.Bool("configuration", true)
	}
	ev.Msg("pipeline run failed")
	return result
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
