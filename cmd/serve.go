/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/MOYARU/driftwatch/internal/api"
	"github.com/MOYARU/driftwatch/internal/app/ui"
	"github.com/MOYARU/driftwatch/internal/digest"
	"github.com/MOYARU/driftwatch/internal/mailer"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/pipeline"
	"github.com/MOYARU/driftwatch/internal/schedule"
	"github.com/MOYARU/driftwatch/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the scheduler and digest loops",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			fmt.Printf("%sServer failed: %v%s\n", ui.ColorRed, err, ui.ColorReset)
			os.Exit(1)
		}
	},
}

func runServe() error {
	s, err := store.Open(policy.DatabasePath)
	if err != nil {
		return err
	}

	ctx, cancel := ui.WaitForCancel(context.Background())
	defer cancel()

	p := pipeline.New(s, policy)
	scheduler := schedule.New(s, p, policy.ScanWorkers, policy.SchedulerPollSeconds)
	digests := digest.New(s, mailer.New(policy.SMTP))
	server := api.New(s, p, scheduler, digests, policy)

	go scheduler.Loop(ctx)
	go digests.Loop(ctx, policy.DigestPollSeconds)

	httpServer := &http.Server{
		Addr:              policy.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	ui.PrintGradientAsciiArt()
	fmt.Printf("%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("ServeListening", policy.ListenAddr), ui.ColorReset)

	select {
	case <-ctx.Done():
		// Loops stop with ctx; give in-flight requests a moment to finish.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
