package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out     io.Writer
	verbose bool
}

// NewConsole crea el notificador de consola. verbose imprime también los
// mercados sin oportunidad; el modo compacto solo lo que requiere atención.
func NewConsole(verbose bool) *Console {
	return &Console{out: os.Stdout, verbose: verbose}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, verbose bool) *Console {
	return &Console{out: w, verbose: verbose}
}

// Notify imprime el resumen del ciclo en 1-2 líneas más el detalle de las
// decisiones que importan (placed y rejected).
func (c *Console) Notify(_ context.Context, decisions []domain.Decision) error {
	now := time.Now().Format("15:04:05")
	placed, rejected, skipped, quiet := countOutcomes(decisions)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d mkts → placed:%d rejected:%d skipped:%d quiet:%d",
		now, len(decisions), placed, rejected, skipped, quiet)

	for _, d := range decisions {
		switch d.Outcome {
		case domain.DecisionPlaced:
			fmt.Fprintf(&sb, "\n  >> %s %s", d.MarketKey, describeCandidate(d.Candidate))
		case domain.DecisionRejected:
			fmt.Fprintf(&sb, "\n  !! %s rejected: %s", d.MarketKey, d.Reason)
		case domain.DecisionSkipped:
			if c.verbose {
				fmt.Fprintf(&sb, "\n  ~~ %s skipped: %s", d.MarketKey, d.Reason)
			}
		}
	}

	fmt.Fprintln(c.out, sb.String())
	return nil
}

// PrintReport imprime el informe del trade log: agregados más la tabla de los
// últimos trades.
func (c *Console) PrintReport(summary domain.TradeSummary, recent []domain.TradeRecord) {
	fmt.Fprintf(c.out, "\n=== TRADE REPORT ===\n")
	fmt.Fprintf(c.out, "  Trades:    %d total, %d settled, %d pending\n",
		summary.TotalTrades, summary.Settled, summary.Unsettled)
	fmt.Fprintf(c.out, "  Record:    %dW / %dL  (win rate %.1f%%)\n",
		summary.Wins, summary.Losses, summary.WinRate*100)
	fmt.Fprintf(c.out, "  Wagered:   $%.2f\n", summary.TotalWagered)
	fmt.Fprintf(c.out, "  Net P&L:   $%+.2f  (ROI %.1f%%)\n", summary.TotalPnL, summary.ROI)

	if len(recent) == 0 {
		fmt.Fprintln(c.out, "\n  No trades recorded yet.")
		return
	}

	fmt.Fprintf(c.out, "\n  Last %d trades:\n", len(recent))
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Ticker", "Side", "Price", "Qty", "Cost", "Result", "PnL")

	for _, t := range recent {
		result := "pending"
		pnl := "-"
		if t.Settled {
			result = t.Result
			pnl = fmt.Sprintf("$%+.2f", t.PnL)
		}
		table.Append(
			t.PlacedAt.Format("01-02 15:04"),
			truncate(t.Ticker, 28),
			string(t.Side),
			fmt.Sprintf("%d¢", t.Price),
			fmt.Sprintf("%d", t.Quantity),
			fmt.Sprintf("$%.2f", t.Cost),
			result,
			pnl,
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// --- helpers ---

func countOutcomes(decisions []domain.Decision) (placed, rejected, skipped, quiet int) {
	for _, d := range decisions {
		switch d.Outcome {
		case domain.DecisionPlaced:
			placed++
		case domain.DecisionRejected:
			rejected++
		case domain.DecisionSkipped:
			skipped++
		default:
			quiet++
		}
	}
	return
}

func describeCandidate(cand *domain.CandidatePosition) string {
	if cand == nil {
		return ""
	}
	legs := make([]string, 0, len(cand.Legs))
	for _, leg := range cand.Legs {
		legs = append(legs, fmt.Sprintf("%s %s %d@%d¢", leg.Side, shortTicker(leg.Ticker), leg.Quantity, leg.Price))
	}
	return fmt.Sprintf("%s | set %d¢ | total $%.2f | %s",
		strings.Join(legs, " + "), cand.CostPerSet(), cand.TotalCostDollars(), cand.Reason)
}

// shortTicker se queda con el sufijo del bucket, que es lo que distingue las
// patas dentro del mismo evento.
func shortTicker(ticker string) string {
	if idx := strings.LastIndex(ticker, "-"); idx >= 0 && idx < len(ticker)-1 {
		return ticker[idx+1:]
	}
	return ticker
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
