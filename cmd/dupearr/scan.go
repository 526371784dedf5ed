package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mescon/Dupearr/internal/config"
	"github.com/mescon/Dupearr/internal/services"
)

var (
	scanRoots  []string
	scanQuick  bool
	scanReport string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan media roots and write the duplicate report",
	Long: `Scan walks the given roots, indexes every media folder and groups
folders whose normalized names look like duplicates of each other. The
result is written as a human-readable duplicate report.

Without --root, roots come from DUPEARR_SCAN_ROOTS or are discovered
from the compose manifest's media volumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := services.NewRunner(config.Get(), nil, nil)
		result, err := runner.Scan(ctx, services.ScanOptions{
			Roots:      scanRoots,
			Quick:      scanQuick,
			ReportPath: scanReport,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %d folder(s), %d file(s) in %s\n",
			result.Stats.FoldersIndexed, result.Stats.FilesIndexed,
			result.Stats.Duration.Round(time.Millisecond))
		fmt.Printf("%d potential duplicate group(s) written to %s\n",
			len(result.Groups), result.ReportPath)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanRoots, "root", nil, "media root to scan (repeatable)")
	scanCmd.Flags().BoolVar(&scanQuick, "quick", false, "shallow scan: limit traversal depth below each root")
	scanCmd.Flags().StringVar(&scanReport, "report", "", "duplicate report output path")
	rootCmd.AddCommand(scanCmd)
}
