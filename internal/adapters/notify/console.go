// Package notify implementa ports.Notifier sobre la consola.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

// Console escribe decisiones y resúmenes a un writer.
type Console struct {
	out     io.Writer
	verbose bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(verbose bool) *Console {
	return &Console{out: os.Stdout, verbose: verbose}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, verbose bool) *Console {
	return &Console{out: w, verbose: verbose}
}

// NotifyDecision imprime una línea por ciclo. En modo verbose añade el
// trail de checks del gate.
func (c *Console) NotifyDecision(_ context.Context, d domain.Decision) error {
	ts := d.Timestamp.Format("15:04:05")
	mode := "PAPER"
	if d.Live {
		mode = "LIVE"
	}

	if d.Action == domain.ActionTrade {
		fmt.Fprintf(c.out, "[%s][%s] TRADE %s %s $%.2f @ %.4f  edge=%.0fbps conf=%.2f\n",
			ts, mode, d.MarketID, d.Side, d.SizeUSD, d.Price, d.EdgeBps, d.Confidence)
	} else {
		fmt.Fprintf(c.out, "[%s][%s] SKIP  %s reason=%s edge=%.0fbps conf=%.2f\n",
			ts, mode, d.MarketID, d.Reason, d.EdgeBps, d.Confidence)
	}

	if c.verbose && len(d.RiskChecks) > 0 {
		for _, chk := range d.RiskChecks {
			mark := "ok"
			if !chk.Passed {
				mark = "FAIL"
			}
			if chk.Detail != "" {
				fmt.Fprintf(c.out, "    %-18s %-4s %s\n", chk.Name, mark, chk.Detail)
			} else {
				fmt.Fprintf(c.out, "    %-18s %s\n", chk.Name, mark)
			}
		}
	}
	return nil
}

// NotifySummary imprime la tabla de performance de la ventana.
func (c *Console) NotifySummary(_ context.Context, s ports.Summary) error {
	fmt.Fprintf(c.out, "\n[%s] last %.0fh\n", time.Now().Format("15:04:05"), s.WindowHours)

	table := tablewriter.NewWriter(c.out)
	table.Header("Decisions", "Trades", "Skips", "Resolved", "Wins", "Win rate", "Net PnL", "Fees", "Open")
	table.Append(
		fmt.Sprintf("%d", s.Decisions),
		fmt.Sprintf("%d", s.Trades),
		fmt.Sprintf("%d", s.Skips),
		fmt.Sprintf("%d", s.Resolved),
		fmt.Sprintf("%d", s.Wins),
		fmt.Sprintf("%.1f%%", s.WinRate*100),
		fmt.Sprintf("$%.2f", s.NetPnLUSD),
		fmt.Sprintf("$%.2f", s.FeesUSD),
		fmt.Sprintf("%d", s.OpenPositions),
	)
	table.Render()

	switch {
	case s.Resolved == 0:
		fmt.Fprintln(c.out, "  No resolved positions in window yet.")
	case s.NetPnLUSD > 0:
		fmt.Fprintf(c.out, "  Net positive over %d resolved positions.\n", s.Resolved)
	default:
		fmt.Fprintf(c.out, "  Net negative over %d resolved positions.\n", s.Resolved)
	}
	fmt.Fprintln(c.out)
	return nil
}
