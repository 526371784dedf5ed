package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mescon/Dupearr/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dupearr version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dupearr %s (%s, %s/%s)\n",
			config.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
