package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/ballotwatch/ballotwatch/internal/model"
)

// Confidence assigned to a claim that violates none of the hard
// constraints. Anything at or above 90 lets the orchestrator skip the
// corroboration layers.
const cleanConfidence = 95

// Per-violation confidence levels. When several constraints fail, the
// verdict takes the lowest.
const (
	confEmptyValue   = 10
	confUnparseable  = 10
	confWrongWeekday = 20
	confPlaceholder  = 30
	confImplausible  = 40
)

// dateLayouts are the accepted formats for claimed date values.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	time.RFC3339,
}

// Engine is the deterministic Layer-1 constraint checker. It is pure:
// no I/O, no shared state, and it never fails — every detectable
// condition becomes an error or warning in the verdict.
type Engine struct {
	cfg model.RulesConfig
	now func() time.Time
}

// New creates a rule engine from immutable configuration.
func New(cfg model.RulesConfig) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// violation pairs a human-readable error with the confidence the claim
// drops to when only that constraint fails.
type violation struct {
	message    string
	confidence int
}

// Validate checks a claim against the configured hard constraints and
// returns a Layer-1 verdict.
func (e *Engine) Validate(claim model.Claim) model.LayerVerdict {
	var violations []violation
	var warnings []string
	sources := []string{"rules:field_constraints"}

	value := strings.TrimSpace(claim.Value)
	if value == "" {
		violations = append(violations, violation{"claimed value is empty", confEmptyValue})
	} else if claim.IsDateField() {
		sources = append(sources, "rules:calendar_constraints")
		v, w := e.checkDate(claim, value)
		violations = append(violations, v...)
		warnings = append(warnings, w...)
	} else {
		sources = append(sources, "rules:content_constraints")
		violations = append(violations, e.checkText(value)...)
	}

	verdict := model.LayerVerdict{
		Layer:          model.LayerRules,
		IsValid:        len(violations) == 0,
		Confidence:     cleanConfidence,
		Warnings:       warnings,
		SourcesChecked: sources,
	}

	for _, v := range violations {
		verdict.Errors = append(verdict.Errors, v.message)
		if v.confidence < verdict.Confidence {
			verdict.Confidence = v.confidence
		}
	}

	return verdict
}

// checkDate applies calendar constraints to a date-valued claim.
func (e *Engine) checkDate(claim model.Claim, value string) ([]violation, []string) {
	var violations []violation
	var warnings []string

	date, ok := parseDate(value)
	if !ok {
		violations = append(violations, violation{
			fmt.Sprintf("claimed date %q is not a recognizable date", value),
			confUnparseable,
		})
		return violations, nil
	}

	// Jurisdiction-specific election day (e.g. Louisiana votes on Saturdays).
	if required, ok := e.requiredWeekday(claim.Jurisdiction); ok {
		if date.Weekday() != required {
			violations = append(violations, violation{
				fmt.Sprintf("election date %s falls on %s: must be %s in %s",
					date.Format("2006-01-02"), date.Weekday(), required, jurisdictionLabel(claim.Jurisdiction)),
				confWrongWeekday,
			})
		}
	}

	// Plausibility window around now.
	if e.cfg.PlausibilityYears > 0 {
		now := e.now()
		window := time.Duration(e.cfg.PlausibilityYears) * 365 * 24 * time.Hour
		if date.Before(now.Add(-window)) || date.After(now.Add(window)) {
			violations = append(violations, violation{
				fmt.Sprintf("claimed date %s is more than %d years from now",
					date.Format("2006-01-02"), e.cfg.PlausibilityYears),
				confImplausible,
			})
		} else if date.Before(now) {
			warnings = append(warnings, fmt.Sprintf("claimed date %s is in the past", date.Format("2006-01-02")))
		}
	}

	return violations, warnings
}

// checkText applies the placeholder deny-list to free-text claims.
func (e *Engine) checkText(value string) []violation {
	lower := strings.ToLower(value)
	var violations []violation
	for _, phrase := range e.cfg.DenyList {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			violations = append(violations, violation{
				fmt.Sprintf("claimed value contains placeholder content %q", phrase),
				confPlaceholder,
			})
		}
	}
	return violations
}

// requiredWeekday resolves the election weekday for a jurisdiction,
// falling back to the "default" entry.
func (e *Engine) requiredWeekday(jurisdiction string) (time.Weekday, bool) {
	name, ok := e.cfg.ElectionDays[strings.ToUpper(jurisdiction)]
	if !ok {
		name, ok = e.cfg.ElectionDays["default"]
	}
	if !ok {
		return 0, false
	}
	return parseWeekday(name)
}

func jurisdictionLabel(jurisdiction string) string {
	if jurisdiction == "" {
		return "this jurisdiction"
	}
	return strings.ToUpper(jurisdiction)
}

// parseDate tries each accepted layout in order.
func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseWeekday(name string) (time.Weekday, bool) {
	switch strings.ToLower(name) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	default:
		return 0, false
	}
}
