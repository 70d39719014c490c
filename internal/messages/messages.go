package messages

import (
	"fmt"
)

type MessageDetail struct {
	Title   string
	Message string
	Fix     string
}

var catalog = map[string]MessageDetail{
	// Alert types. Message format args: previous value, current value.
	"ssl_invalid": {
		Title:   "SSL Certificate Problem",
		Message: "The site no longer serves valid HTTPS (was: %s, now: %s). Visitors may see browser warnings and traffic is exposed to interception.",
		Fix:     "Renew or re-issue the TLS certificate and verify the full chain is served.",
	},
	"ssl_restored": {
		Title:   "SSL Certificate Restored",
		Message: "The site serves valid HTTPS again (was: %s, now: %s).",
	},
	"risk_increased": {
		Title:   "Risk Level Increased",
		Message: "The security posture regressed from %s to %s.",
		Fix:     "Review the newest assessment's factor breakdown to see which checks regressed.",
	},
	"risk_decreased": {
		Title:   "Risk Level Decreased",
		Message: "The security posture improved from %s to %s.",
	},
	"config_drift": {
		Title:   "Security Header Removed",
		Message: "The %s response header was present before and is now missing.",
		Fix:     "Restore the header in the web server or application configuration.",
	},
	"config_improved": {
		Title:   "Security Header Added",
		Message: "The %s response header is now present.",
	},
	"new_technology": {
		Title:   "New Technology Detected",
		Message: "%s was detected on the site and was not seen in the previous assessment.",
	},
	"technology_removed": {
		Title:   "Technology No Longer Detected",
		Message: "%s is no longer detected. This may mean it was removed, or that it is now hidden from fingerprinting.",
	},

	// Risk factor descriptions.
	"FACTOR_TLS_INVALID": {
		Title:   "Invalid HTTPS",
		Message: "The site does not serve a working HTTPS connection.",
		Fix:     "Install a valid TLS certificate from a trusted CA and serve all traffic over HTTPS.",
	},
	"FACTOR_TLS_EXPIRING": {
		Title:   "Certificate Expiring",
		Message: "The TLS certificate expires in %d days.",
		Fix:     "Renew the certificate before it expires; consider automated renewal.",
	},
	"FACTOR_TLS_VALID": {
		Title:   "Valid HTTPS",
		Message: "The site serves a working HTTPS connection.",
	},
	"FACTOR_HEADER_MISSING": {
		Title:   "Missing Security Header",
		Message: "The %s response header is missing.",
		Fix:     "Add the header with a restrictive value appropriate for the site.",
	},
	"FACTOR_HEADER_PRESENT": {
		Title:   "Security Header Present",
		Message: "The %s response header is set.",
	},
	"FACTOR_HEADERS_SKIPPED": {
		Title:   "Headers Not Assessed",
		Message: "Response headers could not be retrieved; the header checklist was skipped this run.",
	},
	"FACTOR_CMS_DETECTED": {
		Title:   "CMS Platform Detected",
		Message: "%s was detected. Widely deployed platforms are frequent targets of automated attacks.",
		Fix:     "Keep the platform and its plugins up to date and remove version markers where possible.",
	},
	"FACTOR_NO_CMS": {
		Title:   "No CMS Platform Detected",
		Message: "No commonly targeted CMS platform was detected.",
	},
	"FACTOR_BANNER_EXPOSED": {
		Title:   "Server Banner Exposed",
		Message: "The server advertises itself as %q.",
		Fix:     "Suppress or genericize the Server and X-Powered-By headers.",
	},
	"FACTOR_BANNER_HIDDEN": {
		Title:   "Server Banner Hidden",
		Message: "The server does not advertise software or version information.",
	},
}

var uiMessages = map[string]string{
	"ScanStart":           "Assessing %s ...",
	"ScanDone":            "Assessment finished in %s (%d requests).",
	"ScanFailed":          "Assessment failed: %s",
	"ScanInFlight":        "A scan for this target is already running.",
	"TargetAdded":         "Target %s registered (schedule: %s).",
	"TargetExists":        "Target %s is already registered.",
	"NoTargets":           "No targets registered.",
	"NoDueTargets":        "No targets are due.",
	"RunDueDone":          "Processed %d due target(s): %d ok, %d failed.",
	"DigestNone":          "No pending alerts to send.",
	"DigestSent":          "Sent %d digest(s) covering %d alert(s).",
	"DigestSubject":       "Security digest: %d change(s) across %d site(s)",
	"DigestRegressions":   "Regressions",
	"DigestImprovements":  "Improvements",
	"DigestInformational": "Other observations",
	"PrefUpdated":         "Preference for %s updated.",
	"ServeListening":      "driftwatch API listening on %s",
	"TargetRemoved":       "Target %s removed.",
	"TargetRemovePrompt":  "Remove target %s and its assessment history?",
	"TargetRemoveAborted": "Removal cancelled.",

	"ConsoleBreakdownTitle": "--- Risk Breakdown ---",
	"ConsoleDriftTitle":     "--- Drift Since Previous Assessment ---",
	"ConsoleAlertsTitle":    "--- Alerts ---",
	"ConsoleNoDrift":        "No drift since the previous assessment.",
	"ConsoleFirstRun":       "First completed assessment; drift tracking starts now.",
	"ConsoleHeadersSkipped": "Response headers unavailable; header checks skipped.",
	"ConsoleTechnologies":   "Technologies: %s",
	"ConsoleCertExpiry":     "Certificate expires in %d day(s).",
}

// GetMessage returns the catalog entry for an alert type or factor ID. The
// message text may contain fmt verbs filled in by the caller.
func GetMessage(id string) MessageDetail {
	if msg, ok := catalog[id]; ok {
		if msg.Title == "" {
			msg.Title = id
		}
		return msg
	}
	return MessageDetail{
		Title:   id,
		Message: fmt.Sprintf("No message registered for %q.", id),
	}
}

// GetUIMessage formats a console string by ID, falling back to the ID itself.
func GetUIMessage(id string, args ...interface{}) string {
	format, ok := uiMessages[id]
	if !ok || format == "" {
		return id
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
