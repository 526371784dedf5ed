package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mescon/Dupearr/internal/config"
	"github.com/mescon/Dupearr/internal/services"
)

var (
	runRoots []string
	runQuick bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: scan, resolve and plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := config.Get()
		runner := services.NewRunner(cfg, nil, nil)
		result, err := runner.FullRun(ctx, services.ScanOptions{
			Roots: runRoots,
			Quick: runQuick,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%d potential duplicate group(s) found\n", len(result.Groups))
		fmt.Printf("Report:   %s\n", result.ReportPath)
		fmt.Printf("Resolved: %s\n", cfg.ResolvedReportPath)
		fmt.Printf("Script:   %s\n", cfg.ScriptPath)
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runRoots, "root", nil, "media root to scan (repeatable)")
	runCmd.Flags().BoolVar(&runQuick, "quick", false, "shallow scan: limit traversal depth below each root")
	rootCmd.AddCommand(runCmd)
}
