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
	resolveReport string
	resolveOutput string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Match a duplicate report against the Sonarr and Radarr catalogs",
	Long: `Resolve reads an existing duplicate report, fetches the Sonarr and
Radarr catalogs and decides for each group which folder is the official
copy. An unreachable catalog degrades to an empty result for that
service; the other catalog still resolves.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := services.NewRunner(config.Get(), nil, nil)
		results, err := runner.Resolve(ctx, resolveReport, resolveOutput)
		if err != nil {
			return err
		}

		matched := 0
		for _, r := range results {
			if r.Found() {
				matched++
			}
		}
		fmt.Printf("Resolved %d group(s), %d matched a catalog entry\n", len(results), matched)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveReport, "report", "", "duplicate report to resolve")
	resolveCmd.Flags().StringVar(&resolveOutput, "output", "", "resolved report output path")
	rootCmd.AddCommand(resolveCmd)
}
