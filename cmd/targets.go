/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/MOYARU/driftwatch/internal/app/output"
	"github.com/MOYARU/driftwatch/internal/app/ui"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/probe"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	targetsUserID    uint
	targetsFrequency string
	targetsYes       bool
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage monitored targets",
}

var targetsAddCmd = &cobra.Command{
	Use:   "add [target]",
	Short: "Register a website for scheduled monitoring",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := addTarget(args[0]); err != nil {
			fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered targets with their latest risk",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listTargets(); err != nil {
			fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

var targetsRemoveCmd = &cobra.Command{
	Use:   "remove [target]",
	Short: "Remove a target and its assessment history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := removeTarget(args[0]); err != nil {
			fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

func addTarget(rawURL string) error {
	vetted, err := probe.VetTarget(rawURL)
	if err != nil {
		return err
	}
	frequency := store.Frequency(targetsFrequency)
	if !frequency.Valid() {
		return errors.Errorf("invalid frequency %q (hourly, daily, weekly)", targetsFrequency)
	}

	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	existing, err := s.Targets().ByUserAndURL(targetsUserID, vetted)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New(msges.GetUIMessage("TargetExists", vetted))
	}

	now := time.Now()
	target := &store.Target{
		UserID:          targetsUserID,
		URL:             vetted,
		Domain:          probe.RegistrableDomain(vetted),
		ScheduleEnabled: true,
		Frequency:       frequency,
		NextRunAt:       &now,
	}
	if err := s.Targets().Create(target); err != nil {
		return err
	}

	fmt.Printf("%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("TargetAdded", vetted, frequency), ui.ColorReset)
	return nil
}

func listTargets() error {
	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	targets, err := s.Targets().ListByUser(targetsUserID)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Printf("%s%s%s\n", ui.ColorGray, msges.GetUIMessage("NoTargets"), ui.ColorReset)
		return nil
	}

	for _, t := range targets {
		fmt.Printf("%s[%d]%s %s\n", ui.ColorWhite, t.ID, ui.ColorReset, t.URL)

		schedule := "off"
		if t.ScheduleEnabled {
			schedule = string(t.Frequency)
			if t.NextRunAt != nil {
				schedule += ", next run " + t.NextRunAt.Format("2006-01-02 15:04")
			}
		}
		fmt.Printf("    %sschedule: %s%s\n", ui.ColorGray, schedule, ui.ColorReset)

		if t.LastAssessmentID != nil {
			a, err := s.Assessments().ByID(*t.LastAssessmentID)
			if err == nil {
				color := output.SeverityColor(report.ParseSeverity(a.Level))
				fmt.Printf("    %srisk: %d/100 (%s)%s\n", color, a.Score, a.Level, ui.ColorReset)
			}
		}
	}
	return nil
}

func removeTarget(rawURL string) error {
	vetted, err := probe.VetTarget(rawURL)
	if err != nil {
		return err
	}

	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	target, err := s.Targets().ByUserAndURL(targetsUserID, vetted)
	if err != nil {
		return err
	}
	if target == nil {
		return errors.Errorf("no such target: %s", vetted)
	}

	if !targetsYes {
		prompt := fmt.Sprintf("%s%s%s", ui.ColorYellow, msges.GetUIMessage("TargetRemovePrompt", vetted), ui.ColorReset)
		confirmed, err := ui.Confirm(prompt)
		if err != nil || !confirmed {
			fmt.Printf("%s%s%s\n", ui.ColorYellow, msges.GetUIMessage("TargetRemoveAborted"), ui.ColorReset)
			return nil
		}
	}

	if err := s.Targets().Delete(target.ID); err != nil {
		return err
	}
	fmt.Printf("%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("TargetRemoved", vetted), ui.ColorReset)
	return nil
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	targetsCmd.AddCommand(targetsAddCmd, targetsListCmd, targetsRemoveCmd)

	targetsCmd.PersistentFlags().UintVar(&targetsUserID, "user", 1, "Owning user id")
	targetsAddCmd.Flags().StringVar(&targetsFrequency, "frequency", "daily", "Scan frequency (hourly, daily, weekly)")
	targetsRemoveCmd.Flags().BoolVar(&targetsYes, "yes", false, "Skip the confirmation prompt")
}
