package rules

import "github.com/okian/penaltyhub/internal/domain/model"

// Defaults returns the built-in rule catalogue used when no catalogue file
// is configured.
func Defaults() []model.Rule {
	return []model.Rule{
		{
			ID:          "late_arrival",
			Variable:    model.VarArrivalTime,
			Operator:    model.OpGreater,
			Threshold:   model.ClockThreshold(20 * 60),
			Action:      model.ActionAddFixed,
			ActionValue: 1,
			Description: "1 per minute late after 20:00",
		},
		{
			ID:          "forgot_kit",
			Variable:    model.VarForgotKit,
			Operator:    model.OpEqual,
			Threshold:   model.FlagThreshold(true),
			Action:      model.ActionAddFixed,
			ActionValue: 5,
			Description: "Forgot the kit",
		},
		{
			ID:          "yellow_card",
			Variable:    model.VarYellowCards,
			Operator:    model.OpGreater,
			Threshold:   model.CountThreshold(0),
			Action:      model.ActionAddFixed,
			ActionValue: 2,
			Description: "Booked for protesting",
		},
		{
			ID:          "heavy_late",
			Variable:    model.VarRitardoPesante,
			Operator:    model.OpGreater,
			Threshold:   model.CountThreshold(15),
			Action:      model.ActionHalfFieldPenalty,
			ActionValue: 0,
			Description: "Over 15 minutes late: pay half the pitch",
		},
		{
			ID:          "nutmeg_double",
			Variable:    model.VarNutmegs,
			Operator:    model.OpGreater,
			Threshold:   model.CountThreshold(0),
			Action:      model.ActionMultiplyQuota,
			ActionValue: 2,
			Description: "Nutmegged: double quota",
		},
	}
}
