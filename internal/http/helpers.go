package http

import (
	"encoding/json"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/credentials"
	"finboard/internal/services"
)

const maxConfigBody = 8 << 10

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

// categoryView is one slice of the breakdown as the page renders it.
type categoryView struct {
	Category            string `json:"category"`
	Amount              string `json:"amount"`
	Percentage          string `json:"percentage"`
	AmountFormatted     string `json:"amountFormatted"`
	PercentageFormatted string `json:"percentageFormatted"`
}

type summaryView struct {
	TotalIncome    string         `json:"totalIncome"`
	TotalExpenses  string         `json:"totalExpenses"`
	Balance        string         `json:"balance"`
	IncomeEntries  int            `json:"incomeEntries"`
	ExpenseEntries int            `json:"expenseEntries"`
	Categories     []categoryView `json:"categories"`
	Formatted      struct {
		TotalIncome   string `json:"totalIncome"`
		TotalExpenses string `json:"totalExpenses"`
		Balance       string `json:"balance"`
	} `json:"formatted"`
}

type summaryResponse struct {
	Summary summaryView `json:"summary"`
}

type summaryErrorResponse struct {
	Error   string      `json:"error"`
	Kind    string      `json:"kind"`
	Summary summaryView `json:"summary"`
}

// configView never carries the full token.
type configView struct {
	Configured         bool   `json:"configured"`
	Token              string `json:"token,omitempty"`
	IncomeDatabaseID   string `json:"incomeDatabaseId,omitempty"`
	ExpensesDatabaseID string `json:"expensesDatabaseId,omitempty"`
	Transport          string `json:"transport,omitempty"`
}

type configRequest struct {
	Token              string `json:"token"`
	IncomeDatabaseID   string `json:"incomeDatabaseId"`
	ExpensesDatabaseID string `json:"expensesDatabaseId"`
}

func newSummaryView(sum core.Summary) summaryView {
	v := summaryView{
		TotalIncome:    sum.TotalIncome.StringFixed(2),
		TotalExpenses:  sum.TotalExpenses.StringFixed(2),
		Balance:        sum.Balance.StringFixed(2),
		IncomeEntries:  sum.IncomeEntries,
		ExpenseEntries: sum.ExpenseEntries,
		Categories:     make([]categoryView, 0, len(sum.Categories)),
	}
	v.Formatted.TotalIncome = core.FormatEuros(sum.TotalIncome)
	v.Formatted.TotalExpenses = core.FormatEuros(sum.TotalExpenses)
	v.Formatted.Balance = core.FormatEuros(sum.Balance)

	for _, c := range sum.ByAmount() {
		v.Categories = append(v.Categories, categoryView{
			Category:            c.Category,
			Amount:              c.Amount.StringFixed(2),
			Percentage:          c.Percentage.StringFixed(1),
			AmountFormatted:     core.FormatEuros(c.Amount),
			PercentageFormatted: core.FormatPercent(c.Percentage),
		})
	}
	return v
}

func newConfigView(c credentials.Credentials, transport string) configView {
	if c == (credentials.Credentials{}) {
		return configView{Transport: transport}
	}
	return configView{
		Configured:         c.IsComplete(),
		Token:              c.MaskedToken(),
		IncomeDatabaseID:   c.IncomeDatabaseID,
		ExpensesDatabaseID: c.ExpensesDatabaseID,
		Transport:          transport,
	}
}

// statusForKind maps a load failure to the HTTP status of /api/summary.
func statusForKind(kind string) int {
	switch kind {
	case services.KindIncomplete, services.KindValidation, services.KindNotConfigured, services.KindMissingID:
		return http.StatusBadRequest
	case services.KindUnauthorized, services.KindForbidden, services.KindNotFound, services.KindUpstream:
		return http.StatusBadGateway
	case services.KindTransport:
		return http.StatusServiceUnavailable
	case services.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
