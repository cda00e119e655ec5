package expense

import (
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 500

// Details are the employee-editable fields of an expense.
type Details struct {
	Amount          decimal.Decimal
	Currency        string
	ConvertedAmount decimal.Decimal
	Category        string
	Description     string
	ExpenseDate     time.Time
}

func (d Details) Validate() error {
	v := validation.NewValidator()
	v.Field("amount", d.Amount).NonNegative(internal.ErrCodeInvalidAmount)
	v.Field("converted_amount", d.ConvertedAmount).NonNegative(internal.ErrCodeInvalidAmount)
	v.Field("currency", d.Currency).Required().Matches(validation.CurrencyCodePattern, internal.ErrCodeInvalidCurrency)
	v.Field("category", d.Category).Required()
	v.Field("description", d.Description).Required().MaxLength(maxDescriptionLength)
	v.Field("expense_date", d.ExpenseDate).Required().NotFuture()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type SubmitExpenseDTO struct {
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	ConvertedAmount decimal.NullDecimal `json:"converted_amount"`
	Category        string              `json:"category"`
	Description     string              `json:"description"`
	ExpenseDate     *time.Time          `json:"expense_date,omitempty"`
}

// ToDetails fills defaults: a missing converted amount means the expense is
// already in company currency, and a missing date means today.
func (d SubmitExpenseDTO) ToDetails(now time.Time) Details {
	converted := d.Amount
	if d.ConvertedAmount.Valid {
		converted = d.ConvertedAmount.Decimal
	}
	date := now
	if d.ExpenseDate != nil {
		date = *d.ExpenseDate
	}
	return Details{
		Amount:          d.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(d.Currency)),
		ConvertedAmount: converted,
		Category:        strings.TrimSpace(d.Category),
		Description:     strings.TrimSpace(d.Description),
		ExpenseDate:     date,
	}
}

// UpdateExpenseDTO edits a rejected expense; nil fields keep their value.
type UpdateExpenseDTO struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Currency        *string          `json:"currency,omitempty"`
	ConvertedAmount *decimal.Decimal `json:"converted_amount,omitempty"`
	Category        *string          `json:"category,omitempty"`
	Description     *string          `json:"description,omitempty"`
	ExpenseDate     *time.Time       `json:"expense_date,omitempty"`
}

func (d UpdateExpenseDTO) MergeInto(current Details) Details {
	out := current
	if d.Amount != nil {
		out.Amount = *d.Amount
		if d.ConvertedAmount == nil && current.Amount.Equal(current.ConvertedAmount) {
			out.ConvertedAmount = *d.Amount
		}
	}
	if d.Currency != nil {
		out.Currency = strings.ToUpper(strings.TrimSpace(*d.Currency))
	}
	if d.ConvertedAmount != nil {
		out.ConvertedAmount = *d.ConvertedAmount
	}
	if d.Category != nil {
		out.Category = strings.TrimSpace(*d.Category)
	}
	if d.Description != nil {
		out.Description = strings.TrimSpace(*d.Description)
	}
	if d.ExpenseDate != nil {
		out.ExpenseDate = *d.ExpenseDate
	}
	return out
}

// ListFilter narrows expense listings. EmployeeIDs empty means every
// employee of the company.
type ListFilter struct {
	CompanyID   int64
	EmployeeIDs []int64
	Status      Status
	Category    string
	Limit       int
	Offset      int
}

type ListResponse struct {
	Expenses []*Expense `json:"expenses"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}
