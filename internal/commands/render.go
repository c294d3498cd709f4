package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/model"
)

// printer writes reports as aligned text tables or indented JSON.
type printer struct {
	w        io.Writer
	format   string
	currency *money.Currency
	code     string
}

func newPrinter(w io.Writer, format, currency string) *printer {
	return &printer{
		w:        w,
		format:   format,
		currency: money.GetCurrency(currency),
		code:     currency,
	}
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// money formats d in the configured currency. Amounts are rounded to the
// currency's minor unit for display only.
func (p *printer) money(d decimal.Decimal) string {
	if p.currency == nil {
		return d.StringFixed(2) + " " + p.code
	}
	minor := d.Shift(int32(p.currency.Fraction)).Round(0).IntPart()
	return money.New(minor, p.currency.Code).Display()
}

// blank renders zero amounts as empty cells in debit and credit columns.
func (p *printer) blank(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return p.money(d)
}

func (p *printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
}

func (p *printer) warnings(ws []balance.Warning) {
	for _, w := range ws {
		fmt.Fprintf(p.w, "warning: %s\n", w.Message)
	}
}

func (p *printer) accounts(accts []model.Account) error {
	tw := p.table()
	fmt.Fprintln(tw, "CODE\tNAME\tTYPE\tNORMAL\t")
	for _, a := range accts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", a.Code, a.Name, a.Type, a.NormalSide())
	}
	return tw.Flush()
}

func (p *printer) ledger(r *balance.LedgerReport) error {
	fmt.Fprintf(p.w, "%s %s (%s)  %s to %s\n", r.Account.Code, r.Account.Name, r.Account.Type,
		day(r.Start), day(r.End))

	tw := p.table()
	fmt.Fprintln(tw, "DATE\tENTRY\tDESCRIPTION\tDEBIT\tCREDIT\tBALANCE\t")
	fmt.Fprintf(tw, "\t\tOpening balance\t\t\t%s\t\n", p.money(r.OpeningBalance))
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", day(row.Date), row.EntryNumber, row.Description,
			p.blank(row.Debit), p.blank(row.Credit), p.money(row.Balance))
	}
	fmt.Fprintf(tw, "\t\tClosing balance\t%s\t%s\t%s\t\n",
		p.money(r.TotalDebit), p.money(r.TotalCredit), p.money(r.ClosingBalance))
	if err := tw.Flush(); err != nil {
		return err
	}
	p.warnings(r.Warnings)
	return nil
}

func (p *printer) generalLedger(gl *balance.GeneralLedger) error {
	for i, r := range gl.Ledgers {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		if err := p.ledger(r); err != nil {
			return err
		}
	}
	if len(gl.Ledgers) == 0 {
		fmt.Fprintf(p.w, "No activity from %s to %s\n", day(gl.Start), day(gl.End))
	}
	p.warnings(gl.Warnings)
	return nil
}

func (p *printer) cashbook(cb *balance.Cashbook, rows []balance.CashbookRow) error {
	fmt.Fprintf(p.w, "Cashbook  %s to %s\n", day(cb.Start), day(cb.End))

	tw := p.table()
	fmt.Fprintln(tw, "DATE\tENTRY\tACCOUNT\tDESCRIPTION\tDEBIT\tCREDIT\tRUNNING\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\t%s\t\n", day(row.Date), row.EntryNumber,
			row.AccountCode, row.AccountName, row.Description,
			p.blank(row.Debit), p.blank(row.Credit), p.money(row.CombinedBalance))
	}
	fmt.Fprintf(tw, "\t\t\tTotal\t%s\t%s\t\t\n", p.money(cb.TotalDebit), p.money(cb.TotalCredit))
	if err := tw.Flush(); err != nil {
		return err
	}
	p.warnings(cb.Warnings)
	return nil
}

func (p *printer) trialBalance(tb *balance.TrialBalance) error {
	fmt.Fprintf(p.w, "Trial balance as of %s\n", day(tb.AsOf))

	tw := p.table()
	fmt.Fprintln(tw, "CODE\tACCOUNT\tDEBIT\tCREDIT\t")
	for _, row := range tb.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", row.Account.Code, row.Account.Name,
			p.blank(row.DebitColumn), p.blank(row.CreditColumn))
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\t\n", p.money(tb.TotalDebitColumn), p.money(tb.TotalCreditColumn))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(p.w, "Status: %s", strings.ToUpper(string(tb.Status)))
	if !tb.Balanced() {
		fmt.Fprintf(p.w, " (difference %s)", tb.Difference.String())
	}
	fmt.Fprintln(p.w)
	p.warnings(tb.Warnings)
	return nil
}

func day(t time.Time) string {
	return t.Format(model.DateFormat)
}
