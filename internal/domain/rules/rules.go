// Package rules validates rule drafts and resolves their thresholds into
// typed values at authoring time.
package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// Draft is a rule as authored by a user, before validation.
type Draft struct {
	ID          string   `json:"id,omitempty" toml:"id"`
	Variable    string   `json:"variable" toml:"variable"`
	Operator    string   `json:"operator" toml:"operator"`
	Value       any      `json:"value" toml:"value"`
	Action      string   `json:"action" toml:"action"`
	ActionValue *float64 `json:"action_value,omitempty" toml:"action_value"`
	Description string   `json:"description" toml:"description"`
	OwnerID     string   `json:"owner_id,omitempty" toml:"owner_id"`
	Message     string   `json:"message,omitempty" toml:"message"`
}

var variables = map[model.Variable]struct{}{
	model.VarArrivalTime:    {},
	model.VarGoalCount:      {},
	model.VarIsMVP:          {},
	model.VarYellowCards:    {},
	model.VarForgotKit:      {},
	model.VarOwnGoals:       {},
	model.VarNutmegs:        {},
	model.VarPostHits:       {},
	model.VarCustom:         {},
	model.VarRitardoPesante: {},
}

var operators = map[model.Operator]struct{}{
	model.OpGreater:      {},
	model.OpLess:         {},
	model.OpEqual:        {},
	model.OpGreaterEqual: {},
	model.OpNotEqual:     {},
}

var actions = map[model.Action]struct{}{
	model.ActionAddFixed:         {},
	model.ActionMultiplyQuota:    {},
	model.ActionPercentTotal:     {},
	model.ActionContributeToFund: {},
	model.ActionHalfFieldPenalty: {},
}

// Validate turns a draft into a rule. Description and value must be present;
// a missing action value defaults to 0 and a missing id gets a fresh uuid.
func Validate(d Draft) (model.Rule, error) {
	if strings.TrimSpace(d.Description) == "" {
		return model.Rule{}, ErrEmptyDescription
	}
	if isEmpty(d.Value) {
		return model.Rule{}, ErrEmptyValue
	}
	v := model.Variable(strings.TrimSpace(d.Variable))
	if _, ok := variables[v]; !ok {
		return model.Rule{}, fmt.Errorf("%w: %q", ErrUnknownVariable, d.Variable)
	}
	op := model.Operator(strings.TrimSpace(d.Operator))
	if _, ok := operators[op]; !ok {
		return model.Rule{}, fmt.Errorf("%w: %q", ErrUnknownOperator, d.Operator)
	}
	act := model.Action(strings.TrimSpace(d.Action))
	if _, ok := actions[act]; !ok {
		return model.Rule{}, fmt.Errorf("%w: %q", ErrUnknownAction, d.Action)
	}
	th, err := ParseThreshold(v, d.Value)
	if err != nil {
		return model.Rule{}, err
	}

	var actionValue float64
	if d.ActionValue != nil {
		actionValue = *d.ActionValue
	}
	id := strings.TrimSpace(d.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return model.Rule{
		ID:          id,
		Variable:    v,
		Operator:    op,
		Threshold:   th,
		Action:      act,
		ActionValue: actionValue,
		Description: strings.TrimSpace(d.Description),
		OwnerID:     d.OwnerID,
		Message:     d.Message,
	}, nil
}

// ParseThreshold resolves a raw authoring value for the given variable.
// Counting variables keep unparseable text as a NaN count, which never triggers.
func ParseThreshold(v model.Variable, raw any) (model.Threshold, error) {
	switch v {
	case model.VarArrivalTime:
		s, ok := raw.(string)
		if !ok {
			return model.Threshold{}, fmt.Errorf("%w: %s needs HH:MM", ErrInvalidThreshold, v)
		}
		m, err := model.ParseClock(s)
		if err != nil {
			return model.Threshold{}, fmt.Errorf("%w: %w", ErrInvalidThreshold, err)
		}
		return model.ClockThreshold(m), nil
	case model.VarRitardoPesante:
		// the evaluator ignores this threshold; accept either shape
		if s, ok := raw.(string); ok {
			if m, err := model.ParseClock(s); err == nil {
				return model.ClockThreshold(m), nil
			}
		}
		return model.CountThreshold(toNumber(raw)), nil
	case model.VarForgotKit, model.VarIsMVP:
		switch b := raw.(type) {
		case bool:
			return model.FlagThreshold(b), nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return model.Threshold{}, fmt.Errorf("%w: %s needs true or false", ErrInvalidThreshold, v)
			}
			return model.FlagThreshold(parsed), nil
		default:
			return model.Threshold{}, fmt.Errorf("%w: %s needs true or false", ErrInvalidThreshold, v)
		}
	default:
		return model.CountThreshold(toNumber(raw)), nil
	}
}

func toNumber(raw any) float64 {
	switch n := raw.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

// Replace validates a draft as the successor of an existing rule. The old
// rule is left as is; the replacement always gets a new id.
func Replace(old model.Rule, d Draft) (model.Rule, error) {
	d.ID = ""
	if d.OwnerID == "" {
		d.OwnerID = old.OwnerID
	}
	return Validate(d)
}
