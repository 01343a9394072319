package cmd

import "testing"

func TestServeMetricsCmd_Registered(t *testing.T) {
	if serveMetricsCmd.Use != "serve-metrics" {
		t.Errorf("serveMetricsCmd.Use = %q, want %q", serveMetricsCmd.Use, "serve-metrics")
	}
	if serveMetricsCmd.RunE == nil {
		t.Error("serveMetricsCmd.RunE is nil")
	}
}
