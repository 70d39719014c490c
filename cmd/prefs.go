/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"fmt"
	"os"

	"github.com/MOYARU/driftwatch/internal/alert"
	"github.com/MOYARU/driftwatch/internal/app/ui"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	prefsUserID              uint
	prefsEnabled             bool
	prefsMinSeverity         string
	prefsCooldown            int
	prefsImprovementCooldown int
	prefsChannelOff          bool
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage alert preferences and the digest channel",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get [type]",
	Short: "Show effective alert preferences (all types when none given)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := getPrefs(args); err != nil {
			fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set [type]",
	Short: "Update the preference for one alert type",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := setPref(cmd, args[0]); err != nil {
			fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

var prefsChannelCmd = &cobra.Command{
	Use:   "channel [email]",
	Short: "Set the digest email address, or disable delivery with --off",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := setChannel(args); err != nil {
			fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

func getPrefs(args []string) error {
	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	types := alert.Types()
	if len(args) == 1 {
		if !alert.ValidType(args[0]) {
			return errors.Errorf("unknown alert type %q", args[0])
		}
		types = []string{args[0]}
	}

	for _, alertType := range types {
		pref, err := s.Preferences().For(prefsUserID, alertType)
		if err != nil {
			return err
		}
		pref.ApplyDefaultCooldown(policy.DefaultCooldownHours)
		printPref(pref)
	}

	if len(args) == 0 {
		setting, err := s.Settings().For(prefsUserID)
		if err != nil {
			return err
		}
		channel := "disabled"
		if setting.Enabled && setting.Email != "" {
			channel = setting.Email
		}
		fmt.Printf("\n %sdigest channel: %s%s\n", ui.ColorGray, channel, ui.ColorReset)
	}
	return nil
}

func printPref(pref *store.AlertPreference) {
	state := "enabled"
	color := ui.ColorGreen
	if !pref.Enabled {
		state = "disabled"
		color = ui.ColorGray
	}

	line := fmt.Sprintf("%s: %s, min severity %s, cooldown %dh", pref.Type, state, pref.MinSeverity, pref.CooldownHours)
	if pref.ImprovementCooldownHours != nil {
		line += fmt.Sprintf(", improvement cooldown %dh", *pref.ImprovementCooldownHours)
	}
	if pref.ID == 0 {
		line += " (default)"
	}
	fmt.Printf(" %s%s%s\n", color, line, ui.ColorReset)
}

func setPref(cmd *cobra.Command, alertType string) error {
	if !alert.ValidType(alertType) {
		return errors.Errorf("unknown alert type %q", alertType)
	}

	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	pref, err := s.Preferences().For(prefsUserID, alertType)
	if err != nil {
		return err
	}
	pref.ApplyDefaultCooldown(policy.DefaultCooldownHours)

	if cmd.Flags().Changed("enabled") {
		pref.Enabled = prefsEnabled
	}
	if cmd.Flags().Changed("min-severity") {
		if !report.Severity(prefsMinSeverity).Valid() {
			return errors.Errorf("invalid severity %q", prefsMinSeverity)
		}
		pref.MinSeverity = prefsMinSeverity
	}
	if cmd.Flags().Changed("cooldown") {
		if prefsCooldown < 1 {
			return errors.New("cooldown must be at least 1 hour")
		}
		pref.CooldownHours = prefsCooldown
	}
	if cmd.Flags().Changed("improvement-cooldown") {
		if prefsImprovementCooldown == 0 {
			pref.ImprovementCooldownHours = nil
		} else {
			if prefsImprovementCooldown < 1 {
				return errors.New("improvement cooldown must be at least 1 hour")
			}
			hours := prefsImprovementCooldown
			pref.ImprovementCooldownHours = &hours
		}
	}

	if err := s.Preferences().Upsert(pref); err != nil {
		return err
	}

	fmt.Printf("%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("PrefUpdated", alertType), ui.ColorReset)
	printPref(pref)
	return nil
}

func setChannel(args []string) error {
	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	setting, err := s.Settings().For(prefsUserID)
	if err != nil {
		return err
	}

	switch {
	case prefsChannelOff:
		setting.Enabled = false
	case len(args) == 1:
		setting.Email = args[0]
		setting.Enabled = true
	default:
		return errors.New("give an email address or --off")
	}

	if err := s.Settings().Upsert(setting); err != nil {
		return err
	}

	if setting.Enabled {
		fmt.Printf("%sDigest channel set to %s.%s\n", ui.ColorGreen, setting.Email, ui.ColorReset)
	} else {
		fmt.Printf("%sDigest delivery disabled.%s\n", ui.ColorGray, ui.ColorReset)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd, prefsChannelCmd)

	prefsCmd.PersistentFlags().UintVar(&prefsUserID, "user", 1, "Owning user id")
	prefsSetCmd.Flags().BoolVar(&prefsEnabled, "enabled", true, "Whether alerts of this type are recorded")
	prefsSetCmd.Flags().StringVar(&prefsMinSeverity, "min-severity", "", "Severity floor (info, low, medium, high, critical)")
	prefsSetCmd.Flags().IntVar(&prefsCooldown, "cooldown", 0, "Cooldown window in hours")
	prefsSetCmd.Flags().IntVar(&prefsImprovementCooldown, "improvement-cooldown", 0, "Improvement cooldown in hours (0 clears the override)")
	prefsChannelCmd.Flags().BoolVar(&prefsChannelOff, "off", false, "Disable digest delivery")
}
