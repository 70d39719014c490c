/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/MOYARU/driftwatch/internal/app/ui"
	"github.com/MOYARU/driftwatch/internal/digest"
	"github.com/MOYARU/driftwatch/internal/mailer"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/store"
	"github.com/spf13/cobra"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Alert digest delivery operations",
}

var digestSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Batch pending alerts into per-user digests and send them",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDigestSend(); err != nil {
			fmt.Printf("%s%v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

func runDigestSend() error {
	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	ctx, cancel := ui.WaitForCancel(context.Background())
	defer cancel()

	res, err := digest.New(s, mailer.New(policy.SMTP)).Dispatch(ctx)
	if err != nil {
		return err
	}

	if res.Users == 0 {
		fmt.Printf("%s%s%s\n", ui.ColorGray, msges.GetUIMessage("DigestNone"), ui.ColorReset)
		return nil
	}

	fmt.Printf("%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("DigestSent", res.Dispatched, res.Alerts), ui.ColorReset)
	if res.Failed > 0 {
		fmt.Printf(" %s%d delivery failure(s); those alerts stay queued.%s\n", ui.ColorYellow, res.Failed, ui.ColorReset)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.AddCommand(digestSendCmd)
}
