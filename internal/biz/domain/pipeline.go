package domain

import "time"

// Outcome is the terminal state of one pipeline run
type Outcome string

const (
	OutcomeGatedOut Outcome = "gated_out"
	OutcomeReplied  Outcome = "replied"
	OutcomeFailed   Outcome = "failed"
)

// GateReason names the gate that stopped a run
type GateReason string

const (
	GateNone         GateReason = ""
	GateUnauthorized GateReason = "not_whitelisted"
	GateDisabled     GateReason = "auto_reply_disabled"
	GateOutsideHours GateReason = "outside_active_hours"
)

// Stage names the step at which a run failed
type Stage string

const (
	StagePersist  Stage = "persist"
	StageGenerate Stage = "generate"
	StageDeliver  Stage = "deliver"
	StageRecord   Stage = "record_reply"
)

// ProcessResult describes how a run ended. It is diagnostic only and is
// never persisted: the stored record cannot tell a gated run from a failed one.
type ProcessResult struct {
	MessageID     int64
	Outcome       Outcome
	Gate          GateReason
	Stage         Stage
	Err           error
	KnowledgeUsed bool
	Latency       time.Duration
	ProviderMsgID string
}

// DeliveryResult is a successful send
type DeliveryResult struct {
	ProviderMessageID string
}
