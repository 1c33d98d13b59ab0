package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/market"
	"github.com/Mohsinsiddi/w3market/internal/purchases"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// Column defines a table column.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // selected row index (-1 = none)
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// Render returns the full table as a string. Cells are padded before styling
// so every column keeps its exact width.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(CurrentPalette().Highlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(CurrentPalette().Value)

	var headers []string
	for _, col := range t.Columns {
		headers = append(headers, headerStyle.Render(fit(col.Title, col.Width)))
	}
	sb.WriteString(strings.Join(headers, " "))
	sb.WriteString("\n")

	var divider []string
	for _, col := range t.Columns {
		divider = append(divider, StyleDim.Render(strings.Repeat("-", col.Width)))
	}
	sb.WriteString(strings.Join(divider, " "))
	sb.WriteString("\n")

	for i, row := range t.Rows {
		var cells []string
		for j, col := range t.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			style := cellStyle
			if i == t.SelIdx {
				style = StyleSelected
			}
			cells = append(cells, style.Render(fit(val, col.Width)))
		}
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

// fit left-aligns s in exactly width runes, truncating with an ellipsis.
func fit(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n == width {
		return s
	}
	if n < width {
		return s + strings.Repeat(" ", width-n)
	}
	if width <= 1 {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-1]) + "…"
}

// KeyValueBlock renders a set of key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-18s", p[0]+":"))
		val := StyleValue.Render(p[1])
		sb.WriteString("  " + key + " " + val + "\n")
	}
	return StyleBorder.Render(sb.String())
}

// ItemColumns is the layout of the catalog table.
var ItemColumns = []Column{
	{Title: "ID", Width: 5},
	{Title: "Name", Width: 24},
	{Title: "Price", Width: 16},
	{Title: "Owner", Width: 13},
	{Title: "Status", Width: 7},
	{Title: "Action", Width: 9},
}

// ItemTable lays out items as seen by account. The zero account shows no
// actions.
func ItemTable(items []contract.Item, account common.Address, currency string) *Table {
	t := NewTable(ItemColumns)
	for _, it := range items {
		t.AddRow(ItemRow(it, account, currency))
	}
	return t
}

// ItemRow renders one catalog entry.
func ItemRow(it contract.Item, account common.Address, currency string) Row {
	status := "listed"
	if it.IsSold {
		status = "sold"
	}
	owner := TruncateAddr(it.Owner.Hex())
	if account != (common.Address{}) && it.Owner == account {
		owner = "you"
	}
	return Row{
		fmt.Sprint(it.ID),
		it.Name,
		chain.FormatEther(it.Price) + " " + currency,
		owner,
		status,
		ActionLabel(it, account),
	}
}

// ActionLabel names the action account may take on it, or "".
func ActionLabel(it contract.Item, account common.Address) string {
	switch {
	case market.CanBuy(it, account):
		return "buy"
	case market.CanTransfer(it, account):
		return "transfer"
	}
	return ""
}

// SkeletonTable is the placeholder shown while the catalog loads.
func SkeletonTable(rows int) *Table {
	t := NewTable(ItemColumns)
	for i := 0; i < rows; i++ {
		r := make(Row, len(ItemColumns))
		for j, col := range ItemColumns {
			r[j] = strings.Repeat("░", col.Width-1)
		}
		t.AddRow(r)
	}
	return t
}

// HistoryTable lays out purchase records, newest first as stored.
func HistoryTable(records []purchases.Record, currency string) *Table {
	t := NewTable([]Column{
		{Title: "Date", Width: 20},
		{Title: "ID", Width: 5},
		{Title: "Name", Width: 22},
		{Title: "Price", Width: 16},
		{Title: "Tx", Width: 13},
	})
	for _, r := range records {
		date := r.Date
		if len(date) >= 19 {
			date = strings.Replace(date[:19], "T", " ", 1)
		}
		t.AddRow(Row{date, r.ItemID, r.Name, r.Price + " " + currency, TruncateAddr(r.TxHash)})
	}
	return t
}
