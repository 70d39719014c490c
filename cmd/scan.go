/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"fmt"
	"os"

	"github.com/MOYARU/driftwatch/internal/app/scan"
	"github.com/MOYARU/driftwatch/internal/app/ui"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/store"
	"github.com/spf13/cobra"
)

var (
	scanUserID uint
	scanJSON   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [target]",
	Short: "Assess a website once and print the risk breakdown",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := store.Open(policy.DatabasePath)
		if err == nil {
			err = scan.RunScan(s, policy, scanUserID, args[0], scanJSON)
		}
		if err != nil {
			fmt.Printf("%s%s%s\n", ui.ColorRed, msges.GetUIMessage("ScanFailed", err), ui.ColorReset)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().UintVar(&scanUserID, "user", 1, "Owning user id")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Also write the report as JSON to stdout")
}
