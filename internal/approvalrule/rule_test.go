package approvalrule_test

import (
	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Rule", func() {
	var r *approvalrule.Rule

	BeforeEach(func() {
		r = &approvalrule.Rule{
			Name:     "Large travel",
			RuleType: approvalrule.RuleTypeHybrid,
			Steps: []approvalrule.Step{
				{StepNumber: 2, Approvers: []int64{3, 4}},
				{StepNumber: 1, Approvers: []int64{2}},
			},
			ConditionalRules: approvalrule.ConditionalRules{
				Percentage:       &approvalrule.PercentageRule{Enabled: true, Percentage: decimal.NewFromInt(60)},
				SpecificApprover: &approvalrule.SpecificApproverRule{Enabled: true, Approvers: []int64{9, 2}},
				Hybrid:           &approvalrule.HybridRule{Enabled: true, Operator: approvalrule.OperatorOr},
			},
			AmountThreshold: approvalrule.AmountThreshold{Min: decimal.NewFromInt(100)},
			IsActive:        true,
		}
	})

	It("accepts a well-formed rule", func() {
		Expect(r.Validate()).To(Succeed())
	})

	It("sorts steps and lists approvers once", func() {
		Expect(r.SortedSteps()[0].StepNumber).To(Equal(1))
		Expect(r.ApproverIDs()).To(Equal([]int64{3, 4, 2, 9}))
	})

	It("knows which types consult conditional rules", func() {
		Expect(r.IsConditional()).To(BeTrue())
		r.RuleType = approvalrule.RuleTypeSequential
		Expect(r.IsConditional()).To(BeFalse())
		var nilRule *approvalrule.Rule
		Expect(nilRule.IsConditional()).To(BeFalse())
	})

	DescribeTable("rejects malformed rules",
		func(mutate func(*approvalrule.Rule)) {
			mutate(r)
			err := r.Validate()
			Expect(err).To(MatchError(approvalrule.ErrInvalidRule))
			Expect(internal.IsErrorType(err, internal.ErrorTypeValidation)).To(BeTrue())
		},
		Entry("missing name", func(r *approvalrule.Rule) { r.Name = " " }),
		Entry("unknown type", func(r *approvalrule.Rule) { r.RuleType = "Random" }),
		Entry("empty step", func(r *approvalrule.Rule) { r.Steps[0].Approvers = nil }),
		Entry("duplicate step number", func(r *approvalrule.Rule) { r.Steps[1].StepNumber = 2 }),
		Entry("zero step number", func(r *approvalrule.Rule) { r.Steps[1].StepNumber = 0 }),
		Entry("gap in step numbers", func(r *approvalrule.Rule) { r.Steps[0].StepNumber = 3 }),
		Entry("percentage above 100", func(r *approvalrule.Rule) {
			r.ConditionalRules.Percentage.Percentage = decimal.NewFromInt(101)
		}),
		Entry("bad operator", func(r *approvalrule.Rule) { r.ConditionalRules.Hybrid.Operator = "XOR" }),
		Entry("hybrid without hybrid block", func(r *approvalrule.Rule) { r.ConditionalRules.Hybrid = nil }),
		Entry("enabled specific rule without approvers", func(r *approvalrule.Rule) {
			r.ConditionalRules.SpecificApprover.Approvers = nil
		}),
		Entry("negative min", func(r *approvalrule.Rule) { r.AmountThreshold.Min = decimal.NewFromInt(-1) }),
		Entry("max below min", func(r *approvalrule.Rule) {
			r.AmountThreshold.Max = decimal.NewNullDecimal(decimal.NewFromInt(50))
		}),
	)

	It("round-trips through the datamodel", func() {
		back := approvalrule.FromDataModel(approvalrule.ToDataModel(r))
		Expect(back.Steps).To(Equal(r.Steps))
		Expect(back.ConditionalRules.Hybrid.Operator).To(Equal(approvalrule.OperatorOr))
		Expect(back.ConditionalRules.Percentage.Percentage.Equal(decimal.NewFromInt(60))).To(BeTrue())
		Expect(back.AmountThreshold.Max.Valid).To(BeFalse())
	})
})
