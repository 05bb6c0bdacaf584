package engine

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ballotwatch/ballotwatch/internal/corroborate"
	"github.com/ballotwatch/ballotwatch/internal/model"
	"github.com/ballotwatch/ballotwatch/internal/rules"
)

// stubClient returns a canned verdict, error, or panic for one layer.
type stubClient struct {
	layer   model.Layer
	verdict model.LayerVerdict
	err     error
	panics  bool
	calls   int
}

func (s *stubClient) Layer() model.Layer { return s.layer }
func (s *stubClient) SourceID() string   { return fmt.Sprintf("stub:%d", s.layer) }
func (s *stubClient) Corroborate(ctx context.Context, claim model.Claim) (model.LayerVerdict, error) {
	s.calls++
	if s.panics {
		panic("stub exploded")
	}
	if s.err != nil {
		return model.LayerVerdict{}, s.err
	}
	return s.verdict, nil
}

type memSinks struct {
	mu      sync.Mutex
	records []model.ProvenanceRecord
	items   []model.ManualReviewItem
}

func (m *memSinks) Record(r model.ProvenanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
}

func (m *memSinks) Enqueue(i model.ManualReviewItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, i)
}

// testConfig disables the plausibility window so date checks reduce to
// the weekday constraint and stay deterministic under any clock.
func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Rules.PlausibilityYears = 0
	return cfg
}

func newTestOrchestrator(cfg *model.Config, sinks *memSinks, clients ...corroborate.Client) *Orchestrator {
	var provenance ProvenanceSink
	var reviews ReviewSink
	if sinks != nil {
		provenance = sinks
		reviews = sinks
	}
	return New(cfg, rules.New(cfg.Rules), corroborate.NewRegistry(clients...), provenance, reviews)
}

func confirmedVerdict(layer model.Layer, confidence int) model.LayerVerdict {
	return model.LayerVerdict{
		Layer:          layer,
		IsValid:        true,
		Confidence:     confidence,
		SourcesChecked: []string{fmt.Sprintf("stub:%d", layer)},
	}
}

var saturdayClaim = model.Claim{
	EntityType:   "election",
	EntityID:     "2026-la-gov",
	Field:        "election_date",
	Value:        "2026-10-10", // Saturday
	Jurisdiction: "LA",
}

var tuesdayClaim = model.Claim{
	EntityType:   "election",
	EntityID:     "2026-la-gov",
	Field:        "election_date",
	Value:        "2026-10-13", // Tuesday
	Jurisdiction: "LA",
}

func TestValidate_ShortCircuitSkipsCorroboration(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, verdict: confirmedVerdict(model.LayerAI, 85)}
	official := &stubClient{layer: model.LayerOfficial, verdict: confirmedVerdict(model.LayerOfficial, 85)}
	sinks := &memSinks{}

	o := newTestOrchestrator(testConfig(), sinks, ai, official)
	result := o.Validate(context.Background(), saturdayClaim, Options{})

	if !result.IsValid {
		t.Error("clean Saturday claim must be valid")
	}
	if result.FinalConfidence < 90 {
		t.Errorf("FinalConfidence = %d, want >= 90", result.FinalConfidence)
	}
	if !reflect.DeepEqual(result.LayersExecuted, []model.Layer{model.LayerRules}) {
		t.Errorf("LayersExecuted = %v, want only layer 1", result.LayersExecuted)
	}
	if ai.calls != 0 || official.calls != 0 {
		t.Error("corroboration clients must not be called on short circuit")
	}
	if result.RequiresManualReview {
		t.Error("no review expected")
	}
	if len(sinks.records) != 1 {
		t.Errorf("expected 1 provenance record, got %d", len(sinks.records))
	}
	wantStates := []State{StateInit, StateRulesDone, StateShortCircuit, StateReconciled, StateDone}
	if !reflect.DeepEqual(result.States, wantStates) {
		t.Errorf("States = %v, want %v", result.States, wantStates)
	}
}

func TestValidate_ForceFullRunsAllLayers(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, verdict: confirmedVerdict(model.LayerAI, 85)}
	official := &stubClient{layer: model.LayerOfficial, verdict: confirmedVerdict(model.LayerOfficial, 85)}
	sinks := &memSinks{}

	o := newTestOrchestrator(testConfig(), sinks, ai, official)
	result := o.Validate(context.Background(), saturdayClaim, Options{ForceFull: true})

	want := []model.Layer{model.LayerRules, model.LayerAI, model.LayerOfficial}
	if !reflect.DeepEqual(result.LayersExecuted, want) {
		t.Errorf("LayersExecuted = %v, want %v", result.LayersExecuted, want)
	}
	if len(sinks.records) != 3 {
		t.Errorf("expected 3 provenance records, got %d", len(sinks.records))
	}
}

func TestValidate_WrongWeekdayEscalatesCritical(t *testing.T) {
	sinks := &memSinks{}
	o := newTestOrchestrator(testConfig(), sinks)

	result := o.Validate(context.Background(), tuesdayClaim, Options{})

	if result.IsValid {
		t.Error("Tuesday election in LA must be invalid")
	}
	if result.FinalConfidence != 20 {
		t.Errorf("FinalConfidence = %d, want 20", result.FinalConfidence)
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "must be Saturday") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected weekday error, got %v", result.Errors)
	}
	if !result.RequiresManualReview || result.ManualReviewItem == nil {
		t.Fatal("expected escalation to manual review")
	}
	if result.ManualReviewItem.Severity != model.SeverityCritical {
		t.Errorf("Severity = %s, want critical", result.ManualReviewItem.Severity)
	}
	if len(sinks.items) != 1 {
		t.Errorf("expected 1 enqueued review item, got %d", len(sinks.items))
	}
	if result.States[len(result.States)-1] != StateEscalated {
		t.Errorf("final state = %s, want ESCALATED", result.States[len(result.States)-1])
	}
}

func TestValidate_CorroborationOverridesRules(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, verdict: model.LayerVerdict{
		Layer:          model.LayerAI,
		IsValid:        true,
		Confidence:     85,
		SourcesChecked: []string{"ai:gpt-4o-mini", "https://sos.la.gov/elections", "https://vote.org/la"},
	}}
	sinks := &memSinks{}

	o := newTestOrchestrator(testConfig(), sinks, ai)
	result := o.Validate(context.Background(), tuesdayClaim, Options{})

	if !result.IsValid {
		t.Error("high-confidence corroboration must override the rule verdict")
	}
	if result.FinalConfidence != 85 {
		t.Errorf("FinalConfidence = %d, want 85", result.FinalConfidence)
	}
	disagreement := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "disagree") {
			disagreement = true
		}
	}
	if !disagreement {
		t.Errorf("expected disagreement warning, got %v", result.Warnings)
	}
	if result.RequiresManualReview {
		t.Error("valid high-confidence outcome must not escalate")
	}
}

func TestValidate_LayerErrorDegradesToWarning(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, err: fmt.Errorf("upstream 500")}
	sinks := &memSinks{}

	o := newTestOrchestrator(testConfig(), sinks, ai)
	result := o.Validate(context.Background(), tuesdayClaim, Options{SkipOfficial: true})

	if !reflect.DeepEqual(result.LayersExecuted, []model.Layer{model.LayerRules}) {
		t.Errorf("failed layer must not count as executed, got %v", result.LayersExecuted)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "unavailable") && strings.Contains(w, "upstream 500") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unavailability warning, got %v", result.Warnings)
	}
	// Invalid with a single executed layer still escalates.
	if !result.RequiresManualReview {
		t.Error("expected escalation")
	}
}

func TestValidate_PanickingClientIsContained(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, panics: true}
	sinks := &memSinks{}

	o := newTestOrchestrator(testConfig(), sinks, ai)
	result := o.Validate(context.Background(), tuesdayClaim, Options{SkipOfficial: true})

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "panicked") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected panic warning, got %v", result.Warnings)
	}
	if result.FinalConfidence != 20 {
		t.Errorf("FinalConfidence = %d, want the rule verdict to stand", result.FinalConfidence)
	}
}

func TestValidate_SkipFlags(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, verdict: confirmedVerdict(model.LayerAI, 85)}
	official := &stubClient{layer: model.LayerOfficial, verdict: confirmedVerdict(model.LayerOfficial, 85)}
	sinks := &memSinks{}

	o := newTestOrchestrator(testConfig(), sinks, ai, official)
	result := o.Validate(context.Background(), tuesdayClaim, Options{SkipAI: true})

	if ai.calls != 0 {
		t.Error("SkipAI must suppress the AI client")
	}
	if official.calls != 1 {
		t.Error("official layer must still run")
	}
	want := []model.Layer{model.LayerRules, model.LayerOfficial}
	if !reflect.DeepEqual(result.LayersExecuted, want) {
		t.Errorf("LayersExecuted = %v, want %v", result.LayersExecuted, want)
	}
}

func TestValidate_MissingClientsLeaveLayersDisabled(t *testing.T) {
	o := newTestOrchestrator(testConfig(), nil)
	result := o.Validate(context.Background(), tuesdayClaim, Options{})

	if !reflect.DeepEqual(result.LayersExecuted, []model.Layer{model.LayerRules}) {
		t.Errorf("LayersExecuted = %v, want only layer 1", result.LayersExecuted)
	}
	for _, w := range result.Warnings {
		if strings.Contains(w, "unavailable") {
			t.Errorf("unconfigured layers must stay silent, got warning %q", w)
		}
	}
}

func TestValidate_CancelledContextDegradesGracefully(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, verdict: confirmedVerdict(model.LayerAI, 85)}
	o := newTestOrchestrator(testConfig(), nil, ai)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := o.Validate(ctx, tuesdayClaim, Options{})

	if result == nil {
		t.Fatal("Validate must always return a result")
	}
	if ai.calls != 0 {
		t.Error("clients must not run under a dead context")
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "not executed") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected not-executed warnings, got %v", result.Warnings)
	}
}

func TestValidate_ThresholdOverride(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, verdict: confirmedVerdict(model.LayerAI, 75)}
	sinks := &memSinks{}
	o := newTestOrchestrator(testConfig(), sinks, ai)

	// Valid at 75 clears the default threshold of 70.
	result := o.Validate(context.Background(), tuesdayClaim, Options{SkipOfficial: true})
	if result.RequiresManualReview {
		t.Error("75 must clear the default threshold")
	}

	// Raising the threshold to 80 escalates the same outcome.
	result = o.Validate(context.Background(), tuesdayClaim, Options{SkipOfficial: true, ConfidenceThreshold: 80})
	if !result.RequiresManualReview {
		t.Error("75 must escalate under an 80 threshold")
	}
}

func TestValidate_Idempotent(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, verdict: confirmedVerdict(model.LayerAI, 85)}
	o := newTestOrchestrator(testConfig(), nil, ai)

	first := o.Validate(context.Background(), tuesdayClaim, Options{})
	second := o.Validate(context.Background(), tuesdayClaim, Options{})

	if first.IsValid != second.IsValid || first.FinalConfidence != second.FinalConfidence {
		t.Errorf("repeat runs diverged: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(first.Errors, second.Errors) || !reflect.DeepEqual(first.Warnings, second.Warnings) {
		t.Error("repeat runs must produce identical findings")
	}
}

func TestValidate_EmptyValueNeverShortCircuits(t *testing.T) {
	ai := &stubClient{layer: model.LayerAI, verdict: confirmedVerdict(model.LayerAI, 85)}
	o := newTestOrchestrator(testConfig(), nil, ai)

	claim := saturdayClaim
	claim.Value = ""
	result := o.Validate(context.Background(), claim, Options{})

	if ai.calls != 1 {
		t.Error("invalid rule verdict must proceed to corroboration")
	}
	if !result.IsValid || result.FinalConfidence != 85 {
		t.Errorf("got valid=%v conf=%d, want corroborated 85", result.IsValid, result.FinalConfidence)
	}
}
