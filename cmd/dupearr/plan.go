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
	planReport string
	planScript string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Write an advisory cleanup script for a duplicate report",
	Long: `Plan reads a duplicate report, matches each group against the catalogs
and writes a shell script of suggested removals. Every removal is a
safe_remove call guarded behind review; running the script is your
decision, dupearr itself never deletes files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := services.NewRunner(config.Get(), nil, nil)
		plans, err := runner.Plan(ctx, planReport, planScript)
		if err != nil {
			return err
		}

		removals := 0
		for i := range plans {
			removals += len(plans[i].Removals())
		}
		fmt.Printf("Planned %d group(s), %d suggested removal(s)\n", len(plans), removals)
		fmt.Println("Review the script before running it.")
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planReport, "report", "", "duplicate report to plan from")
	planCmd.Flags().StringVar(&planScript, "script", "", "cleanup script output path")
	rootCmd.AddCommand(planCmd)
}
