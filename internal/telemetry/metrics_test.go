/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesDeclaredMetrics(t *testing.T) {
	PipelineItemsTotal.WithLabelValues("generate", "intro", "ok").Inc()
	GatekeeperAcquisitions.WithLabelValues("writer", "granted").Inc()
	RotationDrawsTotal.WithLabelValues("core").Inc()
	StationDropouts.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	expected := []string{
		"signalwave_pipeline_items_total",
		"signalwave_gatekeeper_acquisitions_total",
		"signalwave_rotation_draws_total",
		"signalwave_station_dropouts_total",
	}
	for _, metric := range expected {
		if !strings.Contains(body, metric) {
			t.Errorf("expected metric %q in exposition output", metric)
		}
	}
}
