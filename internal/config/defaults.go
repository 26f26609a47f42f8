package config

import "time"

// GetDefaultConfig returns the configuration used when no config.yaml is
// present: kubernetes mode at cluster scope with a one-minute idle interval.
func GetDefaultConfig() StewardConfig {
	return StewardConfig{
		Mode:         ModeKubernetes,
		IdleInterval: Duration{time.Minute},
		Lease: LeaseConfig{
			Name:      "steward",
			Namespace: "kube-system",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
		},
		LogLevel: "info",
	}
}
