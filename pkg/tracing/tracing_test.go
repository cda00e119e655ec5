package tracing_test

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-approval/pkg/tracing"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var _ = Describe("Spans", func() {
	BeforeEach(func() {
		exporter.Reset()
	})

	It("exports a successful span with its attributes", func() {
		_, span := tracing.StartSpan(context.Background(), "workflow.Decide", attribute.Int64("expense.id", 9))
		span.SetAttributes(attribute.String("transition", "Advanced"))
		tracing.EndSpan(span, nil)

		spans := exporter.GetSpans()
		Expect(spans).To(HaveLen(1))
		Expect(spans[0].Name).To(Equal("workflow.Decide"))
		Expect(spans[0].Status.Code).To(Equal(codes.Ok))
		Expect(spans[0].Attributes).To(ContainElements(
			attribute.Int64("expense.id", 9),
			attribute.String("transition", "Advanced"),
		))
	})

	It("records the error on failure", func() {
		_, span := tracing.StartSpan(context.Background(), "workflow.SubmitExpense")
		tracing.EndSpan(span, errors.New("no rule"))

		spans := exporter.GetSpans()
		Expect(spans).To(HaveLen(1))
		Expect(spans[0].Status.Code).To(Equal(codes.Error))
		Expect(spans[0].Status.Description).To(Equal("no rule"))
		Expect(spans[0].Events).NotTo(BeEmpty())
	})

	It("nests child spans under the parent", func() {
		ctx, parent := tracing.StartSpan(context.Background(), "parent")
		_, child := tracing.StartSpan(ctx, "child")
		tracing.EndSpan(child, nil)
		tracing.EndSpan(parent, nil)

		spans := exporter.GetSpans()
		Expect(spans).To(HaveLen(2))
		Expect(spans[0].Parent.SpanID()).To(Equal(spans[1].SpanContext.SpanID()))
	})

	It("tolerates a nil span", func() {
		Expect(func() { tracing.EndSpan(nil, errors.New("x")) }).NotTo(Panic())
	})
})
