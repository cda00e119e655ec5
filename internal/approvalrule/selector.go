package approvalrule

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

// SelectRule returns the matching rule with the highest minimum threshold, or
// nil. Rules with equal minimums keep their input order.
func SelectRule(rules []*Rule, amount decimal.Decimal, category string) *Rule {
	ordered := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil && r.IsActive {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AmountThreshold.Min.GreaterThan(ordered[j].AmountThreshold.Min)
	})

	for _, r := range ordered {
		if r.Matches(amount, category) {
			return r
		}
	}
	return nil
}

type ActiveRuleLister interface {
	ListActive(ctx context.Context, companyID int64) ([]*Rule, error)
}

type Selector struct {
	rules  ActiveRuleLister
	logger *slog.Logger
}

func NewSelector(rules ActiveRuleLister, logger *slog.Logger) *Selector {
	return &Selector{rules: rules, logger: logger}
}

// Select loads the company's active rules and picks one. A nil rule with a
// nil error means nothing matched.
func (s *Selector) Select(ctx context.Context, companyID int64, convertedAmount decimal.Decimal, category string) (*Rule, error) {
	rules, err := s.rules.ListActive(ctx, companyID)
	if err != nil {
		return nil, err
	}

	rule := SelectRule(rules, convertedAmount, category)
	if rule == nil {
		s.logger.Debug("no approval rule matched",
			"company_id", companyID,
			"amount", convertedAmount.String(),
			"category", category)
		return nil, nil
	}

	s.logger.Debug("approval rule selected",
		"company_id", companyID,
		"rule_id", rule.ID,
		"rule_type", rule.RuleType)
	return rule, nil
}
