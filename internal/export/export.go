// Package export renders a dashboard summary as a table, JSON, YAML or CSV.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"finboard/internal/core"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatCSV}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of table, json, yaml, csv)", s)
}

// CategoryRow is one category of the breakdown, amounts as fixed-point text.
type CategoryRow struct {
	Category   string `json:"category" yaml:"category" csv:"category"`
	Amount     string `json:"amount" yaml:"amount" csv:"amount"`
	Percentage string `json:"percentage" yaml:"percentage" csv:"percentage"`
}

// Report is the serializable form of a core.Summary. Categories are ordered
// by amount, largest first.
type Report struct {
	TotalIncome    string        `json:"totalIncome" yaml:"total_income"`
	TotalExpenses  string        `json:"totalExpenses" yaml:"total_expenses"`
	Balance        string        `json:"balance" yaml:"balance"`
	IncomeEntries  int           `json:"incomeEntries" yaml:"income_entries"`
	ExpenseEntries int           `json:"expenseEntries" yaml:"expense_entries"`
	Categories     []CategoryRow `json:"categories" yaml:"categories"`
}

func NewReport(sum core.Summary) Report {
	rows := make([]CategoryRow, 0, len(sum.Categories))
	for _, c := range sum.ByAmount() {
		rows = append(rows, CategoryRow{
			Category:   c.Category,
			Amount:     c.Amount.StringFixed(2),
			Percentage: c.Percentage.StringFixed(1),
		})
	}
	return Report{
		TotalIncome:    sum.TotalIncome.StringFixed(2),
		TotalExpenses:  sum.TotalExpenses.StringFixed(2),
		Balance:        sum.Balance.StringFixed(2),
		IncomeEntries:  sum.IncomeEntries,
		ExpenseEntries: sum.ExpenseEntries,
		Categories:     rows,
	}
}

// Write renders sum to w in the given format.
func Write(w io.Writer, format Format, sum core.Summary) error {
	switch format {
	case FormatTable:
		return writeTable(w, sum)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewReport(sum))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewReport(sum)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		rows := NewReport(sum).Categories
		if err := gocsv.Marshal(&rows, w); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeTable(w io.Writer, sum core.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Income\t%s\t\n", core.FormatEuros(sum.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\t\n", core.FormatEuros(sum.TotalExpenses))
	fmt.Fprintf(tw, "Balance\t%s\t\n", core.FormatEuros(sum.Balance))
	fmt.Fprintln(tw, "\t\t")

	if len(sum.Categories) == 0 {
		fmt.Fprintln(tw, "No expenses.\t\t")
		return tw.Flush()
	}

	fmt.Fprintln(tw, "Category\tAmount\tShare\t")
	for _, c := range sum.ByAmount() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", c.Category, core.FormatEuros(c.Amount), core.FormatPercent(c.Percentage))
	}
	return tw.Flush()
}
