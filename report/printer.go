// Package report renders client lookups for humans.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"clientsdb/storage"
)

// Output formats
const (
	FormatTuple = "tuple"
	FormatTable = "table"
)

// Formats lists the accepted output formats
var Formats = []string{FormatTuple, FormatTable}

// Printer writes lookup results, one block per lookup
type Printer struct {
	w      io.Writer
	format string
}

// NewPrinter returns a printer for the given format. Unknown formats fall back
// to tuples.
func NewPrinter(w io.Writer, format string) *Printer {
	if format != FormatTable {
		format = FormatTuple
	}
	return &Printer{w: w, format: format}
}

// PrintBlock writes the rows of one lookup followed by a blank line
func (p *Printer) PrintBlock(rows []storage.ClientPhone) error {
	if p.format == FormatTable {
		return p.printTable(rows)
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(Tuple(row))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	_, err := io.WriteString(p.w, sb.String())
	return err
}

func (p *Printer) printTable(rows []storage.ClientPhone) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"client_id", "first_name", "last_name", "email", "phone"})
	for _, row := range rows {
		phone := "NULL"
		if row.Phone != nil {
			phone = *row.Phone
		}
		t.AppendRow(table.Row{row.ClientID, row.FirstName, row.LastName, row.Email, phone})
	}

	_, err := fmt.Fprintf(p.w, "%s\n\n", t.Render())
	return err
}

// Tuple formats a row as (id, 'first', 'last', 'email', 'phone') with NULL
// for a missing phone
func Tuple(row storage.ClientPhone) string {
	phone := "NULL"
	if row.Phone != nil {
		phone = quote(*row.Phone)
	}
	return fmt.Sprintf("(%s, %s, %s, %s, %s)",
		strconv.Itoa(row.ClientID), quote(row.FirstName), quote(row.LastName), quote(row.Email), phone)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
