package reconcile

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/ballotwatch/ballotwatch/internal/model"
)

func TestReconcile_Empty(t *testing.T) {
	result := Reconcile(nil)

	if result.IsValid {
		t.Error("empty reconciliation must be invalid")
	}
	if len(result.FinalErrors) == 0 {
		t.Error("expected an error explaining the empty input")
	}
}

func TestReconcile_SingleValidVerdict(t *testing.T) {
	result := Reconcile([]model.LayerVerdict{
		{Layer: model.LayerRules, IsValid: true, Confidence: 95},
	})

	if !result.IsValid {
		t.Error("expected valid result")
	}
	if result.FinalConfidence != 95 {
		t.Errorf("FinalConfidence = %d, want 95", result.FinalConfidence)
	}
	if result.DisagreementDetected {
		t.Error("single verdict cannot disagree with itself")
	}
}

func TestReconcile_PassThresholdBoundary(t *testing.T) {
	tests := []struct {
		confidence int
		wantValid  bool
	}{
		{70, true},  // exactly at the threshold passes
		{69, false}, // one below fails
	}

	for _, tt := range tests {
		result := Reconcile([]model.LayerVerdict{
			{Layer: model.LayerRules, IsValid: true, Confidence: tt.confidence},
		})
		if result.IsValid != tt.wantValid {
			t.Errorf("confidence %d: IsValid = %v, want %v", tt.confidence, result.IsValid, tt.wantValid)
		}
	}
}

func TestReconcile_StrongerLayerOverridesWeakerRejection(t *testing.T) {
	// Scenario: rules reject at 60, AI confirms at 85 with citations.
	rules := model.LayerVerdict{
		Layer:      model.LayerRules,
		IsValid:    false,
		Confidence: 60,
		Errors:     []string{"election date falls on Wednesday: must be Tuesday"},
	}
	ai := model.LayerVerdict{
		Layer:          model.LayerAI,
		IsValid:        true,
		Confidence:     85,
		SourcesChecked: []string{"https://sos.la.gov/elections", "https://vote.org/la"},
	}

	result := Reconcile([]model.LayerVerdict{rules, ai})

	if !result.IsValid {
		t.Fatal("expected the stronger AI verdict to win")
	}
	if result.FinalConfidence != 85 {
		t.Errorf("FinalConfidence = %d, want 85", result.FinalConfidence)
	}
	if len(result.FinalErrors) != 0 {
		t.Errorf("valid result must carry no errors, got %v", result.FinalErrors)
	}
	if !result.DisagreementDetected {
		t.Error("expected disagreement to be detected")
	}
	found := false
	for _, w := range result.FinalWarnings {
		if strings.Contains(w, "layers disagree: 1 valid, 1 invalid") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected disagreement warning, got %v", result.FinalWarnings)
	}
}

func TestReconcile_InvalidMaxConfidenceKeepsAllDissent(t *testing.T) {
	verdicts := []model.LayerVerdict{
		{Layer: model.LayerRules, IsValid: false, Confidence: 40, Errors: []string{"rules error"}},
		{Layer: model.LayerOfficial, IsValid: false, Confidence: 90, Errors: []string{"official contradiction"}},
		{Layer: model.LayerAI, IsValid: true, Confidence: 50},
	}

	result := Reconcile(verdicts)

	if result.IsValid {
		t.Fatal("max-confidence verdict is invalid, result must be invalid")
	}
	if result.FinalConfidence != 90 {
		t.Errorf("FinalConfidence = %d, want 90", result.FinalConfidence)
	}
	// Errors from every invalid verdict survive, not only the selected one.
	if len(result.FinalErrors) != 2 {
		t.Errorf("expected both dissenting errors, got %v", result.FinalErrors)
	}
}

func TestReconcile_TieBreaksTowardLowerLayer(t *testing.T) {
	verdicts := []model.LayerVerdict{
		{Layer: model.LayerAI, IsValid: false, Confidence: 80, Errors: []string{"ai says no"}},
		{Layer: model.LayerRules, IsValid: true, Confidence: 80},
	}

	result := Reconcile(verdicts)

	if !result.IsValid {
		t.Error("tie at 80 must select layer 1 (valid), preferring deterministic rules")
	}
}

func TestReconcile_OrderIndependent(t *testing.T) {
	verdicts := []model.LayerVerdict{
		{Layer: model.LayerRules, IsValid: false, Confidence: 60, Errors: []string{"a"}, Warnings: []string{"w1"}},
		{Layer: model.LayerAI, IsValid: true, Confidence: 85, Warnings: []string{"w2"}},
		{Layer: model.LayerOfficial, IsValid: false, Confidence: 85, Errors: []string{"b"}},
	}

	want := Reconcile(verdicts)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]model.LayerVerdict, len(verdicts))
		copy(shuffled, verdicts)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Reconcile(shuffled)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("reconcile is order-dependent:\nwant %+v\ngot  %+v", want, got)
		}
	}
}

func TestReconcile_AllWarningsUnioned(t *testing.T) {
	verdicts := []model.LayerVerdict{
		{Layer: model.LayerRules, IsValid: true, Confidence: 80, Warnings: []string{"w1", "shared"}},
		{Layer: model.LayerAI, IsValid: true, Confidence: 75, Warnings: []string{"w2", "shared"}},
	}

	result := Reconcile(verdicts)

	if len(result.FinalWarnings) != 3 {
		t.Errorf("expected deduplicated union of 3 warnings, got %v", result.FinalWarnings)
	}
}
