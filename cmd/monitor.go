/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/MOYARU/driftwatch/internal/app/ui"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/pipeline"
	"github.com/MOYARU/driftwatch/internal/schedule"
	"github.com/MOYARU/driftwatch/internal/store"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Scheduled monitoring operations",
}

var monitorRunDueCmd = &cobra.Command{
	Use:   "run-due",
	Short: "Assess every target whose schedule is due, then exit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDue(); err != nil {
			fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

func runDue() error {
	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	ctx, cancel := ui.WaitForCancel(context.Background())
	defer cancel()

	scheduler := schedule.New(s, pipeline.New(s, policy), policy.ScanWorkers, policy.SchedulerPollSeconds)
	res, err := scheduler.RunDue(ctx)
	if err != nil {
		return err
	}

	if res.Due == 0 {
		fmt.Printf("%s%s%s\n", ui.ColorGray, msges.GetUIMessage("NoDueTargets"), ui.ColorReset)
		return nil
	}

	fmt.Printf("%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("RunDueDone", res.Due, res.Succeeded, len(res.Failures)), ui.ColorReset)
	for _, f := range res.Failures {
		fmt.Printf(" %s- %s: %s%s\n", ui.ColorRed, f.URL, f.Reason, ui.ColorReset)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.AddCommand(monitorRunDueCmd)
}
