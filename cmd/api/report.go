package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dumptrack-api/internal/model"
	"dumptrack-api/internal/report"
	"dumptrack-api/internal/repository"
	"dumptrack-api/pkg/logger"
)

var reportDryRun bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an inventory report from the command line",
	Long: `report builds the inventory report over every inventory record and
saves it, as the dashboard's generate action does. With --dry-run the
report is printed and not saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		gw := d.backend.ServiceClient()
		rows, err := gw.Select(ctx, repository.TableInventory, repository.Query{Order: repository.Desc("date")})
		if err != nil {
			return err
		}
		var inventory []model.InventoryRecord
		if err := repository.DecodeRows(rows, &inventory); err != nil {
			return err
		}

		if reportDryRun {
			if len(inventory) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), report.MsgNoInventory)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Build(inventory, report.DefaultAccessors(), time.Now()))
			return nil
		}

		log := logger.Named(d.logger, "report")
		saved := report.Generate(ctx, gw, report.NewLogNotifier(log), inventory, report.DefaultAccessors(),
			report.WithLogger(log))
		if saved == nil {
			if len(inventory) == 0 {
				return nil
			}
			return errors.New("report was not saved")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\n\n%s", saved.Title, saved.ID, saved.Content)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportDryRun, "dry-run", false, "print the report without saving it")
	rootCmd.AddCommand(reportCmd)
}

