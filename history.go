package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"slidepack/config"
	"slidepack/ledger"
	"slidepack/models"
)

func newHistoryCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	var showFailures bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generated artifacts or failures from the ledger",
		Long:  "Reads the ledger directly, so it cannot run while the server holds the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer led.Close()

			out := cmd.OutOrStdout()
			if showFailures {
				failures, err := led.ListFailures()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderFailures(failures, limit, time.Now()))
				return nil
			}
			records, err := led.ListArtifacts()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderArtifacts(records, limit, time.Now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showFailures, "failures", false, "List failures instead of artifacts")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	return cmd
}

func newTable(headers ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row(headers))
	return tw
}

func renderArtifacts(records []models.ArtifactRecord, limit int, now time.Time) string {
	if len(records) == 0 {
		return "No artifacts recorded."
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	tw := newTable("File", "Format", "Slides", "Size", "State", "Created")
	for _, rec := range records {
		tw.AppendRow(table.Row{
			rec.Filename,
			rec.Format,
			strconv.Itoa(rec.SlideCount),
			humanize.Bytes(uint64(rec.Size)),
			string(rec.State),
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tw.Render()
}

func renderFailures(failures []models.FailureRecord, limit int, now time.Time) string {
	if len(failures) == 0 {
		return "No failures recorded."
	}
	if limit > 0 && len(failures) > limit {
		failures = failures[:limit]
	}

	tw := newTable("ID", "When", "Error")
	for _, f := range failures {
		tw.AppendRow(table.Row{f.ID, humanize.RelTime(f.Timestamp, now, "ago", "from now"), f.Error})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 80}})
	return tw.Render()
}
