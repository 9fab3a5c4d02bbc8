// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Variable names the participant field a rule condition reads.
type Variable string

// Known rule variables.
const (
	VarArrivalTime    Variable = "arrival_time"
	VarGoalCount      Variable = "goal_count"
	VarIsMVP          Variable = "is_mvp"
	VarYellowCards    Variable = "yellow_cards"
	VarForgotKit      Variable = "forgot_kit"
	VarOwnGoals       Variable = "own_goals"
	VarNutmegs        Variable = "nutmegs"
	VarPostHits       Variable = "post_hits"
	VarCustom         Variable = "custom"
	VarRitardoPesante Variable = "ritardo_pesante"
)

// Operator compares a participant value with a rule threshold.
type Operator string

// Known operators.
const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "=="
	OpGreaterEqual Operator = ">="
	OpNotEqual     Operator = "!="
)

// Action is what happens when a rule condition holds.
type Action string

// Known actions.
const (
	ActionAddFixed         Action = "add_fixed"
	ActionMultiplyQuota    Action = "multiply_quota"
	ActionPercentTotal     Action = "percent_total"
	ActionContributeToFund Action = "contribute_to_fund"
	ActionHalfFieldPenalty Action = "half_field_penalty"
)

// ThresholdKind discriminates the Threshold variant.
type ThresholdKind int

// Threshold kinds.
const (
	KindNone ThresholdKind = iota
	KindClock
	KindCount
	KindFlag
)

// Threshold is the right-hand side of a rule condition, resolved when the
// rule is authored so the evaluator never coerces types.
type Threshold struct {
	Kind    ThresholdKind
	Minutes int     // KindClock: minutes since midnight
	Number  float64 // KindCount
	Flag    bool    // KindFlag
}

// ClockThreshold builds a time-of-day threshold.
func ClockThreshold(minutes int) Threshold { return Threshold{Kind: KindClock, Minutes: minutes} }

// CountThreshold builds a numeric threshold.
func CountThreshold(n float64) Threshold { return Threshold{Kind: KindCount, Number: n} }

// FlagThreshold builds a boolean threshold.
func FlagThreshold(b bool) Threshold { return Threshold{Kind: KindFlag, Flag: b} }

// Count returns the numeric value, or NaN when the threshold is not a count.
func (t Threshold) Count() float64 {
	if t.Kind != KindCount {
		return math.NaN()
	}
	return t.Number
}

// Clock returns minutes since midnight when the threshold is a time of day.
func (t Threshold) Clock() (int, bool) {
	return t.Minutes, t.Kind == KindClock
}

// IsZero reports whether no value was set.
func (t Threshold) IsZero() bool { return t.Kind == KindNone }

// String renders the threshold the way it was authored.
func (t Threshold) String() string {
	switch t.Kind {
	case KindClock:
		return FormatClock(t.Minutes)
	case KindCount:
		return strconv.FormatFloat(t.Number, 'f', -1, 64)
	case KindFlag:
		return strconv.FormatBool(t.Flag)
	default:
		return ""
	}
}

// MarshalJSON encodes the threshold as its raw scalar.
func (t Threshold) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case KindClock:
		return json.Marshal(FormatClock(t.Minutes))
	case KindCount:
		if math.IsNaN(t.Number) || math.IsInf(t.Number, 0) {
			return json.Marshal(t.String())
		}
		return json.Marshal(t.Number)
	case KindFlag:
		return json.Marshal(t.Flag)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a raw scalar. Strings shaped like HH:MM become clock
// thresholds; other strings are parsed as numbers and fall back to NaN.
func (t *Threshold) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("threshold: %w", err)
	}
	switch v := raw.(type) {
	case nil:
		*t = Threshold{}
	case bool:
		*t = FlagThreshold(v)
	case float64:
		*t = CountThreshold(v)
	case string:
		if m, err := ParseClock(v); err == nil {
			*t = ClockThreshold(m)
			return nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			n = math.NaN()
		}
		*t = CountThreshold(n)
	default:
		return fmt.Errorf("threshold: unsupported value %v", raw)
	}
	return nil
}

// Rule is a condition plus an action. Rules are shared by reference between
// matches and are never mutated once stored.
type Rule struct {
	ID          string    `json:"id"`
	Variable    Variable  `json:"variable"`
	Operator    Operator  `json:"operator"`
	Threshold   Threshold `json:"value"`
	Action      Action    `json:"action"`
	ActionValue float64   `json:"action_value"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Message     string    `json:"message,omitempty"`
}
