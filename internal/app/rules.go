package service

import (
	"context"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
	"github.com/okian/penaltyhub/pkg/logger"
	"github.com/okian/penaltyhub/pkg/metrics"
)

// ListRules returns the global catalogue in insertion order.
func (s *Service) ListRules(ctx context.Context) ([]model.Rule, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.ListRules(ctx)
}

// CreateRule validates a draft and adds it to the global catalogue.
func (s *Service) CreateRule(ctx context.Context, d rules.Draft) (model.Rule, error) {
	if err := s.running(); err != nil {
		return model.Rule{}, err
	}
	if d.OwnerID == "" {
		d.OwnerID = s.ownerID
	}
	r, err := rules.Validate(d)
	if err != nil {
		return model.Rule{}, err
	}
	if err := s.store.CreateRule(ctx, r); err != nil {
		return model.Rule{}, err
	}
	s.refreshRuleCount(ctx)
	s.logger.Info(ctx, "rule created", logger.String("rule_id", r.ID), logger.String("variable", string(r.Variable)))
	return r, nil
}

// DeleteRule removes a rule from the global catalogue. Open matches pick the
// change up on their next recalculation.
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	if err := s.running(); err != nil {
		return err
	}
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.refreshRuleCount(ctx)
	s.logger.Info(ctx, "rule deleted", logger.String("rule_id", id))
	return nil
}

// ReplaceRule swaps a rule for a validated successor with a new id, keeping
// its position in the catalogue.
func (s *Service) ReplaceRule(ctx context.Context, id string, d rules.Draft) (model.Rule, error) {
	if err := s.running(); err != nil {
		return model.Rule{}, err
	}
	old, err := s.store.GetRule(ctx, id)
	if err != nil {
		return model.Rule{}, err
	}
	r, err := rules.Replace(old, d)
	if err != nil {
		return model.Rule{}, err
	}
	if err := s.store.ReplaceRule(ctx, id, r); err != nil {
		return model.Rule{}, err
	}
	s.logger.Info(ctx, "rule replaced", logger.String("old_id", id), logger.String("rule_id", r.ID))
	return r, nil
}

func (s *Service) refreshRuleCount(ctx context.Context) {
	if rs, err := s.store.ListRules(ctx); err == nil {
		metrics.UpdateRulesTotal(len(rs))
	}
}
