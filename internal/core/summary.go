package core

import (
	"sort"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the expense amount aggregated for one category.
type CategoryTotal struct {
	Category   string
	Amount     decimal.Decimal
	Percentage decimal.Decimal // share of total expenses, 0-100
}

// Summary is the result of one dashboard load cycle.
type Summary struct {
	TotalIncome    decimal.Decimal
	TotalExpenses  decimal.Decimal
	Balance        decimal.Decimal
	Categories     []CategoryTotal // first-appearance order
	IncomeEntries  int
	ExpenseEntries int
}

// ByAmount returns a copy of the categories sorted by amount, largest first.
func (s Summary) ByAmount() []CategoryTotal {
	out := make([]CategoryTotal, len(s.Categories))
	copy(out, s.Categories)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// Fields names the Notion properties read from each record.
type Fields struct {
	Amount   string
	Category string
}

// DefaultFields returns the "Amount" / "Category" property names.
func DefaultFields() Fields {
	return Fields{Amount: DefaultAmountProperty, Category: DefaultCategoryProperty}
}

// Summarizer folds income and expense records into a Summary.
type Summarizer struct {
	Fields Fields
}

// NewSummarizer returns a Summarizer, filling empty field names with defaults.
func NewSummarizer(fields Fields) Summarizer {
	if strings.TrimSpace(fields.Amount) == "" {
		fields.Amount = DefaultAmountProperty
	}
	if strings.TrimSpace(fields.Category) == "" {
		fields.Category = DefaultCategoryProperty
	}
	return Summarizer{Fields: fields}
}

// EmptySummary is the all-zero summary shown when a load fails.
func EmptySummary() Summary {
	return Summary{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Balance:       decimal.Zero,
		Categories:    []CategoryTotal{},
	}
}

// Summarize uses the default property names.
func Summarize(income, expenses []notionapi.Page) Summary {
	return NewSummarizer(DefaultFields()).Summarize(income, expenses)
}

// Summarize computes totals, balance and the per-category breakdown.
// Percentages are 0 when there are no expenses.
func (s Summarizer) Summarize(income, expenses []notionapi.Page) Summary {
	sum := EmptySummary()
	sum.IncomeEntries = len(income)
	sum.ExpenseEntries = len(expenses)

	for _, page := range income {
		sum.TotalIncome = sum.TotalIncome.Add(s.amount(page))
	}

	index := make(map[string]int)
	for _, page := range expenses {
		amount := s.amount(page)
		category := s.category(page)

		i, seen := index[category]
		if !seen {
			i = len(sum.Categories)
			index[category] = i
			sum.Categories = append(sum.Categories, CategoryTotal{Category: category, Amount: decimal.Zero})
		}
		sum.Categories[i].Amount = sum.Categories[i].Amount.Add(amount)
		sum.TotalExpenses = sum.TotalExpenses.Add(amount)
	}

	sum.Balance = sum.TotalIncome.Sub(sum.TotalExpenses)

	for i := range sum.Categories {
		if sum.TotalExpenses.IsZero() {
			sum.Categories[i].Percentage = decimal.Zero
			continue
		}
		sum.Categories[i].Percentage = sum.Categories[i].Amount.Div(sum.TotalExpenses).Mul(hundred)
	}

	return sum
}

func (s Summarizer) amount(page notionapi.Page) decimal.Decimal {
	v := ExtractPropertyValue(page.Properties[s.Fields.Amount])
	if n, ok := v.AsNumber(); ok {
		return decimal.NewFromFloat(n)
	}
	if text, ok := v.AsText(); ok {
		if d, err := ParseAmount(text); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func (s Summarizer) category(page notionapi.Page) string {
	v := ExtractPropertyValue(page.Properties[s.Fields.Category])
	if text, ok := v.AsText(); ok && strings.TrimSpace(text) != "" {
		return text
	}
	return Uncategorized
}
