package workflow

import (
	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// tally is computed over every request of the expense, whatever its step.
type tally struct {
	total    int
	approved int
	by       map[int64]struct{}
}

func newTally(requests approval.Set) tally {
	return tally{
		total:    len(requests),
		approved: requests.CountStatus(approval.StatusApproved),
		by:       requests.Approved(),
	}
}

// percentageMet compares approved*100 against pct*total so no rounding is
// involved. An empty chain never meets a percentage.
func (t tally) percentageMet(p *approvalrule.PercentageRule) bool {
	if p == nil || t.total == 0 {
		return false
	}
	lhs := decimal.NewFromInt(int64(t.approved)).Mul(hundred)
	rhs := p.Percentage.Mul(decimal.NewFromInt(int64(t.total)))
	return lhs.GreaterThanOrEqual(rhs)
}

func (t tally) specificMet(s *approvalrule.SpecificApproverRule) bool {
	if s == nil {
		return false
	}
	for _, id := range s.Approvers {
		if _, ok := t.by[id]; ok {
			return true
		}
	}
	return false
}

// IsSatisfied reports whether the rule's conditions let the expense skip
// its remaining steps. Checks run percentage, specific approver, hybrid;
// the first one that holds wins. Anomalies resolve to false.
func IsSatisfied(rule *approvalrule.Rule, requests approval.Set) bool {
	if !rule.IsConditional() {
		return false
	}
	cr := rule.ConditionalRules
	t := newTally(requests)

	if cr.PercentageEnabled() && t.percentageMet(cr.Percentage) {
		return true
	}
	if cr.SpecificApproverEnabled() && t.specificMet(cr.SpecificApprover) {
		return true
	}
	if cr.HybridEnabled() {
		percentageMet := cr.PercentageEnabled() && t.percentageMet(cr.Percentage)
		specificMet := t.specificMet(cr.SpecificApprover)
		if cr.Hybrid.Operator == approvalrule.OperatorOr {
			return percentageMet || specificMet
		}
		return percentageMet && specificMet
	}
	return false
}
