// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

// Outcome labels recorded by a Recorder.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeInactive = "inactive"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Recorder receives account events for metrics.
type Recorder interface {
	RecordLogin(outcome string)
	RecordTokenIssued(kind TokenKind)
	RecordRegistration(outcome string)
}

// NopRecorder discards events.
type NopRecorder struct{}

// RecordLogin implements Recorder.
func (NopRecorder) RecordLogin(string) {}

// RecordTokenIssued implements Recorder.
func (NopRecorder) RecordTokenIssued(TokenKind) {}

// RecordRegistration implements Recorder.
func (NopRecorder) RecordRegistration(string) {}
