package main

// status.go — salida operacional del flag -status: último RunRecord del
// synchronizer más el inventario de plantillas cosechadas.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/Jock20242024/yesno-sub001/internal/adapters/storage"
	"github.com/Jock20242024/yesno-sub001/internal/ports"
	"github.com/Jock20242024/yesno-sub001/internal/syncer"
)

func printStatus(ctx context.Context, store *storage.SQLiteStorage) error {
	if err := printRunRecord(ctx, store); err != nil {
		return err
	}
	return printTemplates(ctx, store)
}

func printRunRecord(ctx context.Context, store *storage.SQLiteStorage) error {
	rec, err := store.GetRunRecord(ctx, syncer.TaskName)
	if errors.Is(err, ports.ErrNotFound) {
		fmt.Println("no sync runs recorded yet")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n=== %s — %s (%s ago) ===\n",
		rec.TaskName, rec.Status, time.Since(rec.LastRunAt).Round(time.Second))
	if rec.Error != "" {
		fmt.Printf("error: %s\n", rec.Error)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Scanned", "Extracted", "Changed", "Enqueued", "Filtered", "Skipped", "Hit %", "Duration")
	table.Append(
		fmt.Sprintf("%d", rec.Stats.Scanned),
		fmt.Sprintf("%d", rec.Stats.Extracted),
		fmt.Sprintf("%d", rec.Stats.PriceChanged),
		fmt.Sprintf("%d", rec.Stats.Enqueued),
		fmt.Sprintf("%d", rec.Stats.Filtered),
		fmt.Sprintf("%d", rec.Stats.Skipped),
		fmt.Sprintf("%d", rec.Stats.HitRatePct),
		fmt.Sprintf("%dms", rec.Stats.DurationMS),
	)
	table.Render()

	if len(rec.Stats.Failures) > 0 {
		fmt.Printf("\nfailures (%d):\n", len(rec.Stats.Failures))
		ft := tablewriter.NewWriter(os.Stdout)
		ft.Header("Market", "Title", "External ID", "Reason")
		for _, f := range rec.Stats.Failures {
			ft.Append(f.MarketID, f.MarketTitle, f.ExternalID, f.Reason)
		}
		ft.Render()
	}
	return nil
}

func printTemplates(ctx context.Context, store *storage.SQLiteStorage) error {
	templates, err := store.ListTemplates(ctx)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		fmt.Println("\nno templates harvested yet")
		return nil
	}

	fmt.Printf("\n=== templates (%d) ===\n", len(templates))
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Symbol", "Period", "Kind", "Status", "Failures", "Pattern", "Updated")
	for _, t := range templates {
		table.Append(
			t.Symbol,
			formatPeriod(t.PeriodMinutes),
			string(t.Kind),
			string(t.Status),
			fmt.Sprintf("%d", t.FailureCount),
			t.TitlePattern,
			t.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
	return nil
}

func formatPeriod(minutes int) string {
	switch {
	case minutes >= 43200:
		return "monthly"
	case minutes >= 10080:
		return "weekly"
	case minutes >= 1440:
		return "daily"
	case minutes >= 60:
		return fmt.Sprintf("%dh", minutes/60)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
