package main

import (
	"io"
	"time"

	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// renderSummary prints one row per run figure
func renderSummary(w io.Writer, r ingest.RunResult) error {
	p := message.NewPrinter(language.English)
	outcome := "success"
	if !r.Success {
		outcome = "failed"
	}

	rows := [][]string{
		{"Run", r.RunID},
		{"Outcome", outcome},
		{"State", string(r.State)},
		{"Products synced", p.Sprintf("%d", r.ProductsSynced)},
		{"Products created", p.Sprintf("%d", r.ProductsCreated)},
		{"Products updated", p.Sprintf("%d", r.ProductsUpdated)},
		{"Products failed", p.Sprintf("%d", r.ProductsFailed)},
		{"Source orders", p.Sprintf("%d", r.SourceOrders)},
		{"Multiplier", p.Sprintf("%d", r.Multiplier)},
		{"Orders synced", p.Sprintf("%d", r.OrdersSynced)},
		{"Orders failed", p.Sprintf("%d", r.OrdersFailed)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	if !r.SyncedAt.IsZero() {
		rows = append(rows, []string{"Synced at", r.SyncedAt.UTC().Format(time.RFC3339)})
	}
	if r.Error != "" {
		rows = append(rows, []string{"Error", r.Error})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
