package analytics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Write renders the report in the requested format.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, r.Text())
		return err
	}
	return fmt.Errorf("unknown report format %q", format)
}

// Text is the human-readable summary.
func (r *Report) Text() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		b.WriteString(p.Sprintf(format, args...))
		b.WriteByte('\n')
	}

	if r.SessionID != "" {
		line("Report for session %s", r.SessionID)
	}
	line("Total Order Counts:")
	for _, row := range r.Counts.Rows {
		if row.MessageType != model.MsgTypeNewOrderSingle {
			continue
		}
		line("     NewOrder - %-4s_%-5s: %d", row.Symbol, row.Side, row.Count)
	}
	line("     %-18s: %d", "Total NewOrder", r.Counts.NewOrders)
	line("     %-18s: %d", "Total CancelOrder", r.Counts.Cancels)

	line("Total Trading Volume:")
	writeAmounts(line, r.Volume.BySymbol, "$")
	line("     Total: $%s", money(p, r.Volume.Total))

	switch r.PnL.Mode {
	case PnLModeRealized:
		line("Profit and Loss (PNL) (Sell + Sell Short - Buy):")
	default:
		line("Profit and Loss (PNL) (diff(Buy/Sell_LastPx - MktPx)):")
	}
	writeAmounts(line, r.PnL.BySymbol, "$")
	line("     Total: $%s", money(p, r.PnL.Total))
	if len(r.PnL.MissingReference) > 0 {
		line("     No reference price: %s", strings.Join(r.PnL.MissingReference, ", "))
	}

	line("Volume Weighted Average Price (VWAP):")
	writeAmounts(line, r.VWAP, "$")

	e := r.Executions
	if e.CoercedFields+e.Unattributed+e.UnknownSide > 0 {
		line("Data quality: coerced_fields=%d unattributed=%d unknown_side=%d",
			e.CoercedFields, e.Unattributed, e.UnknownSide)
	}
	return b.String()
}

func writeAmounts(line func(string, ...interface{}), amounts map[string]decimal.Decimal, unit string) {
	p := message.NewPrinter(language.English)
	symbols := make([]string, 0, len(amounts))
	for s := range amounts {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		line("     %-5s: %s%s", s, unit, money(p, amounts[s]))
	}
}

// money rounds to cents and adds thousands separators.
func money(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return p.Sprintf("%.2f", f)
}
