/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clients

import (
	"context"
	"fmt"
)

// FakeWriter deterministically renders a brief into a script, for tests
// and --test mode pipeline runs.
type FakeWriter struct{}

// Write implements WriterClient.
func (FakeWriter) Write(_ context.Context, brief Brief) (string, error) {
	return fmt.Sprintf("[%s/%s] scripted line for %s", brief.PersonaID, brief.ContentType, brief.TargetID), nil
}

// FakeAuditor returns a fixed score and verdict, chosen by Pass, for
// tests and --test mode.
type FakeAuditor struct {
	// Pass, if set to false, makes every audit fail, useful for testing
	// the Audit → regenerate retry path deterministically.
	Pass bool
}

// NewPassingFakeAuditor returns a FakeAuditor that always passes.
func NewPassingFakeAuditor() FakeAuditor { return FakeAuditor{Pass: true} }

// Audit implements AuditorClient.
func (f FakeAuditor) Audit(_ context.Context, script, personaID, contentType string) (AuditRecord, error) {
	score := 0.0
	if f.Pass {
		score = 9.0
	}
	return AuditRecord{
		OverallScore:       score,
		PerCriterionScores: map[string]float64{"tone": score, "accuracy": score},
		Passed:             f.Pass,
		Notes:              fmt.Sprintf("fake audit of %d-byte script for %s/%s", len(script), personaID, contentType),
	}, nil
}

// FakeTTS synthesizes a fixed, valid silent WAV regardless of input, for
// tests and --test mode.
type FakeTTS struct{}

// Synthesize implements TTSClient, returning a minimal valid mono 16-bit
// PCM WAV file so downstream WAV validation (contentstore.WriteAudio)
// succeeds deterministically.
func (FakeTTS) Synthesize(_ context.Context, text string, _ string) ([]byte, error) {
	return synthesizeSilence(len(text)), nil
}
