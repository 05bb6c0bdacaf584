package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ballotwatch/ballotwatch/internal/corroborate"
	"github.com/ballotwatch/ballotwatch/internal/escalate"
	"github.com/ballotwatch/ballotwatch/internal/model"
	"github.com/ballotwatch/ballotwatch/internal/reconcile"
	"github.com/ballotwatch/ballotwatch/internal/rules"
)

// State names one step of a validation run, kept as a trace on the
// result for auditability.
type State string

const (
	StateInit            State = "INIT"
	StateRulesDone       State = "RULES_DONE"
	StateShortCircuit    State = "SHORT_CIRCUIT"
	StateAIPending       State = "AI_PENDING"
	StateOfficialPending State = "OFFICIAL_PENDING"
	StateReconciled      State = "RECONCILED"
	StateDone            State = "DONE"
	StateEscalated       State = "ESCALATED"
)

// shortCircuitConfidence is the Layer-1 score at which corroboration is
// skipped for a valid claim.
const shortCircuitConfidence = 90

// ProvenanceSink receives one audit record per executed layer.
// Implementations are fire-and-forget: their failures never fail a run.
type ProvenanceSink interface {
	Record(record model.ProvenanceRecord)
}

// ReviewSink receives escalated review items.
type ReviewSink interface {
	Enqueue(item model.ManualReviewItem)
}

// Options control a single validation run.
type Options struct {
	SkipAI       bool
	SkipOfficial bool

	// ForceFull runs the corroboration layers even when the rule engine
	// alone would short-circuit.
	ForceFull bool

	// ConfidenceThreshold overrides the configured escalation threshold
	// when positive.
	ConfidenceThreshold int
}

// Result is what every caller of Validate receives. There is no
// "validation crashed" state: weak or missing evidence degrades to
// RequiresManualReview instead.
type Result struct {
	Claim                model.Claim             `json:"claim"`
	IsValid              bool                    `json:"is_valid"`
	FinalConfidence      int                     `json:"final_confidence"`
	LayersExecuted       []model.Layer           `json:"layers_executed"`
	Errors               []string                `json:"errors,omitempty"`
	Warnings             []string                `json:"warnings,omitempty"`
	RequiresManualReview bool                    `json:"requires_manual_review"`
	ManualReviewItem     *model.ManualReviewItem `json:"manual_review_item,omitempty"`
	Verdicts             []model.LayerVerdict    `json:"verdicts"`
	States               []State                 `json:"states"`
}

// Orchestrator runs the layered validation state machine. It holds no
// mutable state between runs, so one instance may validate many claims
// concurrently.
type Orchestrator struct {
	rules      *rules.Engine
	registry   *corroborate.Registry
	provenance ProvenanceSink
	reviews    ReviewSink
	cfg        *model.Config
	now        func() time.Time
}

// New creates an orchestrator with injected layer clients and sinks.
// Either sink may be nil.
func New(cfg *model.Config, ruleEngine *rules.Engine, registry *corroborate.Registry, provenance ProvenanceSink, reviews ReviewSink) *Orchestrator {
	if registry == nil {
		registry = corroborate.NewRegistry()
	}
	return &Orchestrator{
		rules:      ruleEngine,
		registry:   registry,
		provenance: provenance,
		reviews:    reviews,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Validate runs the full validation pipeline for one claim. It never
// returns a validation-domain error: external failures are recovered as
// warnings and insufficient evidence escalates to manual review.
func (o *Orchestrator) Validate(ctx context.Context, claim model.Claim, opts Options) *Result {
	result := &Result{
		Claim:  claim,
		States: []State{StateInit},
	}

	// Layer 1 always executes.
	ruleVerdict := o.rules.Validate(claim)
	result.Verdicts = append(result.Verdicts, ruleVerdict)
	result.LayersExecuted = append(result.LayersExecuted, model.LayerRules)
	o.recordProvenance(claim, "rules")
	result.States = append(result.States, StateRulesDone)

	if ruleVerdict.IsValid && ruleVerdict.Confidence >= shortCircuitConfidence && !opts.ForceFull {
		result.States = append(result.States, StateShortCircuit)
	} else {
		if !opts.SkipAI {
			result.States = append(result.States, StateAIPending)
			o.runCorroboration(ctx, claim, model.LayerAI, o.cfg.AI.Timeout, result)
		}
		if !opts.SkipOfficial {
			result.States = append(result.States, StateOfficialPending)
			o.runCorroboration(ctx, claim, model.LayerOfficial, o.cfg.Official.Timeout, result)
		}
	}

	reconciled := reconcile.Reconcile(result.Verdicts)
	result.States = append(result.States, StateReconciled)

	result.IsValid = reconciled.IsValid
	result.FinalConfidence = reconciled.FinalConfidence
	result.Errors = reconciled.FinalErrors
	result.Warnings = append(reconciled.FinalWarnings, result.Warnings...)

	item := escalate.BuildReviewItem(claim, reconciled, result.Verdicts, o.threshold(opts))
	if item != nil {
		result.RequiresManualReview = true
		result.ManualReviewItem = item
		if o.reviews != nil {
			o.reviews.Enqueue(*item)
		}
		result.States = append(result.States, StateEscalated)
	} else {
		result.States = append(result.States, StateDone)
	}

	return result
}

// runCorroboration executes one corroboration layer fail-soft: a missing
// client leaves the layer disabled, and any error, timeout, cancellation,
// or panic inside the client degrades to a warning on the result.
func (o *Orchestrator) runCorroboration(ctx context.Context, claim model.Claim, layer model.Layer, timeout time.Duration, result *Result) {
	client, ok := o.registry.Get(layer)
	if !ok {
		return
	}

	if err := ctx.Err(); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("layer %d (%s) not executed: %v", layer, layer, err))
		return
	}

	verdict, err := o.invoke(ctx, client, claim, timeout)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("layer %d (%s) unavailable: %v", layer, layer, err))
		return
	}

	result.Verdicts = append(result.Verdicts, verdict)
	result.LayersExecuted = append(result.LayersExecuted, layer)
	o.recordProvenance(claim, client.SourceID())
}

// invoke calls a client under a per-layer deadline, converting panics
// into errors so a misbehaving client cannot take down the run.
func (o *Orchestrator) invoke(ctx context.Context, client corroborate.Client, claim model.Claim, timeout time.Duration) (verdict model.LayerVerdict, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corroboration client panicked: %v", r)
		}
	}()

	return client.Corroborate(ctx, claim)
}

func (o *Orchestrator) recordProvenance(claim model.Claim, sourceID string) {
	if o.provenance == nil {
		return
	}
	o.provenance.Record(model.ProvenanceRecord{
		EntityRef:     claim.EntityRef(),
		Field:         claim.Field,
		SourceID:      sourceID,
		ObservedValue: claim.Value,
		ObservedAt:    o.now().UTC(),
	})
}

func (o *Orchestrator) threshold(opts Options) int {
	if opts.ConfidenceThreshold > 0 {
		return opts.ConfidenceThreshold
	}
	if o.cfg.Escalation.ConfidenceThreshold > 0 {
		return o.cfg.Escalation.ConfidenceThreshold
	}
	return 70
}
