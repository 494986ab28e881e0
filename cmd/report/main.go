package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/hedgefund_sim/internal/domain"
	"github.com/vitos/hedgefund_sim/internal/infrastructure/storage"
	"github.com/vitos/hedgefund_sim/internal/usecase"
)

func main() {
	dbPath := flag.String("db", "fund.db", "path to the fund database")
	days := flag.Int("days", 30, "report window in days")
	limit := flag.Int("limit", 10, "number of recent orders to print")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	reports := usecase.NewReportService(store, store)

	report, err := reports.Summary(ctx, *days)
	if err != nil {
		fmt.Printf("Failed to build report: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		raw, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Printf("Failed to encode report: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(raw))
		return
	}

	fmt.Printf("Portfolio report, last %d days (%d snapshots)\n", report.PeriodDays, report.SnapshotCount)
	fmt.Printf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Printf("Equity:          $%.2f\n", report.EndEquity)
	fmt.Printf("Cash:            $%.2f\n", report.Cash)
	fmt.Printf("Positions value: $%.2f\n", report.PositionsValue)
	fmt.Printf("Total P/L:       $%.2f (%.2f%%)\n", report.TotalPL, report.TotalPLPercent)
	fmt.Printf("Period P/L:      $%.2f (%.2f%%)\n", report.PeriodPL, report.PeriodPLPercent)
	fmt.Printf("Max drawdown:    %.2f%%\n", report.MaxDrawdownPercent)
	fmt.Printf("Orders:          %d filled, %d rejected, %d pending\n",
		report.OrdersFilled, report.OrdersRejected, report.OrdersPending)

	if len(report.Positions) > 0 {
		fmt.Println("\nOpen positions:")
		for _, p := range report.Positions {
			fmt.Printf("- %-6s %5d @ %.2f, now %.2f, value $%.2f, P/L $%.2f (%.2f%%)\n",
				p.Symbol, p.Quantity, p.AvgEntryPrice, p.CurrentPrice,
				p.MarketValue, p.UnrealizedPL, p.UnrealizedPLPercent)
		}
	}

	orders, err := store.ListOrders(ctx, *limit)
	if err != nil {
		fmt.Printf("Failed to list orders: %v\n", err)
		os.Exit(1)
	}
	if len(orders) > 0 {
		fmt.Println("\nRecent orders:")
		for _, o := range orders {
			line := fmt.Sprintf("- #%d %s %s %d %s", o.ID, o.Side, o.Symbol, o.Quantity, o.Status)
			if o.Status == domain.OrderStatusFilled {
				line += fmt.Sprintf(" @ %.2f", o.FilledAvgPrice)
			}
			if o.Reason != "" {
				line += " (" + o.Reason + ")"
			}
			fmt.Println(line)
		}
	}
}
