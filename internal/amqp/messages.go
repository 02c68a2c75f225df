package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

const MessageTypeSummaryRefreshed = "summary.refreshed"

// CategoryShare is one row of the category breakdown in a message.
type CategoryShare struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// SummaryRefreshedMessage is published after every successful dashboard load.
// Amounts are encoded as decimal strings.
type SummaryRefreshedMessage struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Timestamp      time.Time       `json:"timestamp"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	Balance        decimal.Decimal `json:"balance"`
	IncomeEntries  int             `json:"income_entries"`
	ExpenseEntries int             `json:"expense_entries"`
	Categories     []CategoryShare `json:"categories"`
}

func NewSummaryRefreshedMessage(sum core.Summary) *SummaryRefreshedMessage {
	cats := make([]CategoryShare, 0, len(sum.Categories))
	for _, c := range sum.Categories {
		cats = append(cats, CategoryShare{
			Category:   c.Category,
			Amount:     c.Amount,
			Percentage: c.Percentage.Round(2),
		})
	}
	return &SummaryRefreshedMessage{
		ID:             uuid.NewString(),
		Type:           MessageTypeSummaryRefreshed,
		Timestamp:      time.Now().UTC(),
		TotalIncome:    sum.TotalIncome,
		TotalExpenses:  sum.TotalExpenses,
		Balance:        sum.Balance,
		IncomeEntries:  sum.IncomeEntries,
		ExpenseEntries: sum.ExpenseEntries,
		Categories:     cats,
	}
}

func (m *SummaryRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SummaryRefreshedMessageFromJSON(data []byte) (*SummaryRefreshedMessage, error) {
	var msg SummaryRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Summary rebuilds the summary carried by the message.
func (m *SummaryRefreshedMessage) Summary() core.Summary {
	cats := make([]core.CategoryTotal, 0, len(m.Categories))
	for _, c := range m.Categories {
		cats = append(cats, core.CategoryTotal{
			Category:   c.Category,
			Amount:     c.Amount,
			Percentage: c.Percentage,
		})
	}
	return core.Summary{
		TotalIncome:    m.TotalIncome,
		TotalExpenses:  m.TotalExpenses,
		Balance:        m.Balance,
		Categories:     cats,
		IncomeEntries:  m.IncomeEntries,
		ExpenseEntries: m.ExpenseEntries,
	}
}
