/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package command

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// ReaderService wraps Channel.ReadFrom as a thejerf/suture Service, so the
// operator stdin reader runs under the same supervision tree as the
// Station Controller.
type ReaderService struct {
	Channel *Channel
	Reader  io.Reader
	Logger  zerolog.Logger
}

// Serve reads commands from Reader until ctx is cancelled or Reader
// returns an error. A clean EOF (stdin closed) is reported as
// suture.ErrDoNotRestart, since there is nothing left to read and
// restarting would just spin.
func (s *ReaderService) Serve(ctx context.Context) error {
	err := s.Channel.ReadFrom(ctx, s.Reader, s.Logger)
	if errors.Is(err, io.EOF) {
		return suture.ErrDoNotRestart
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
