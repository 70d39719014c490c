package version

const Value = "0.3.0"

func ProbeUserAgent() string {
	return "driftwatch/" + Value + " (security posture monitor)"
}
