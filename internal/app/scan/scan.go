package scan

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/MOYARU/driftwatch/internal/app/output"
	"github.com/MOYARU/driftwatch/internal/app/ui"
	"github.com/MOYARU/driftwatch/internal/config"
	msges "github.com/MOYARU/driftwatch/internal/messages"
	"github.com/MOYARU/driftwatch/internal/pipeline"
	"github.com/MOYARU/driftwatch/internal/probe"
	"github.com/MOYARU/driftwatch/internal/store"
	"github.com/pkg/errors"
)

// RunScan assesses one target for userID and prints the colored breakdown,
// drift, and alert outcome to the console. The target is registered on
// first use. jsonOutput additionally writes the machine-readable report
// to stdout.
func RunScan(s *store.Store, policy config.Policy, userID uint, rawURL string, jsonOutput bool) error {
	vetted, err := probe.VetTarget(rawURL)
	if err != nil {
		return err
	}

	// Handle Ctrl+C
	ctx, cancel := ui.WaitForCancel(context.Background())
	defer cancel()

	target, err := FindOrCreateTarget(s, userID, vetted)
	if err != nil {
		return err
	}
	firstRun := target.LastAssessmentID == nil

	fmt.Printf("%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("ScanStart", vetted), ui.ColorReset)

	start := time.Now()
	result, err := pipeline.New(s, policy).Run(ctx, target)
	if errors.Is(err, pipeline.ErrScanInFlight) {
		return errors.New(msges.GetUIMessage("ScanInFlight"))
	}
	if result == nil {
		return err
	}
	if err != nil {
		// The assessment itself completed; only a later stage errored.
		fmt.Printf("%s%v%s\n", ui.ColorYellow, err, ui.ColorReset)
	}

	assessment := result.Assessment
	output.PrintAssessment(assessment)
	output.PrintDrift(result.Events, firstRun)
	output.PrintAlerts(result.Alerts)

	elapsed := time.Since(start).Round(time.Millisecond)
	fmt.Printf("\n%s%s%s\n", ui.ColorGray, msges.GetUIMessage("ScanDone", elapsed, assessment.RequestCount), ui.ColorReset)

	if jsonOutput {
		return output.WriteJSON(os.Stdout, target, assessment, result.Events, result.Alerts)
	}
	return nil
}

// FindOrCreateTarget returns the registered target for (userID, vetted URL),
// creating an unscheduled daily-frequency one on first sight.
func FindOrCreateTarget(s *store.Store, userID uint, vetted string) (*store.Target, error) {
	target, err := s.Targets().ByUserAndURL(userID, vetted)
	if err != nil {
		return nil, err
	}
	if target != nil {
		return target, nil
	}

	target = &store.Target{
		UserID:    userID,
		URL:       vetted,
		Domain:    probe.RegistrableDomain(vetted),
		Frequency: store.FrequencyDaily,
	}
	if err := s.Targets().Create(target); err != nil {
		return nil, err
	}
	return target, nil
}
