/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package command is the bounded, non-blocking ingress for operator
// commands: a closed set of single-key actions fed into a buffered
// channel the Station Controller drains without blocking.
package command

import (
	"bufio"
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/friendsincode/signalwave/internal/telemetry"
)

// Command is one of the closed set of operator actions.
type Command string

const (
	Quit    Command = "Quit"
	Pause   Command = "Pause"
	Skip    Command = "Skip"
	Banish  Command = "Banish"
	Flag    Command = "Flag"
	Promote Command = "Promote"
)

// keyBindings maps the single raw input byte to its Command. Unrecognized
// bytes are silently ignored.
var keyBindings = map[byte]Command{
	'q': Quit,
	'Q': Quit,
	'p': Pause,
	'P': Pause,
	's': Skip,
	'S': Skip,
	'b': Banish,
	'B': Banish,
	'f': Flag,
	'F': Flag,
	'r': Promote,
	'R': Promote,
}

// channelDepth bounds the ingress so a burst of keypresses the controller
// hasn't drained yet never blocks the reader goroutine.
const channelDepth = 16

// Channel is a bounded command ingress, safe to read from one consumer
// (typically the Station Controller's drain step) and fed by one reader
// goroutine.
type Channel struct {
	ch chan Command
}

// NewChannel returns an empty, ready-to-use Channel.
func NewChannel() *Channel {
	return &Channel{ch: make(chan Command, channelDepth)}
}

// Commands exposes the receive side for the controller's drain loop.
func (c *Channel) Commands() <-chan Command {
	return c.ch
}

// Push enqueues cmd without blocking. If the channel is full, the oldest
// pending command is dropped to make room — an operator mashing keys
// faster than the controller drains them loses the oldest burst, never
// stalls the station.
func (c *Channel) Push(cmd Command) {
	select {
	case c.ch <- cmd:
		telemetry.CommandsTotal.WithLabelValues(string(cmd), "accepted").Inc()
		return
	default:
	}
	select {
	case oldest := <-c.ch:
		telemetry.CommandsTotal.WithLabelValues(string(oldest), "dropped").Inc()
	default:
	}
	select {
	case c.ch <- cmd:
		telemetry.CommandsTotal.WithLabelValues(string(cmd), "accepted").Inc()
	default:
		telemetry.CommandsTotal.WithLabelValues(string(cmd), "dropped").Inc()
	}
}

// ReadFrom runs a blocking read loop over r (normally a raw-mode stdin),
// translating recognized bytes into Commands and pushing them onto the
// channel, until ctx is cancelled or r returns an error. This is
// intentionally stdlib-only: no third-party terminal library in the
// corpus targets a closed, single-key command set any better than a
// plain byte reader over raw-mode stdin, and terminal rendering itself
// is out of scope here.
func (c *Channel) ReadFrom(ctx context.Context, r io.Reader, logger zerolog.Logger) error {
	reader := bufio.NewReader(r)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b, err := reader.ReadByte()
		if err != nil {
			return err
		}
		cmd, ok := keyBindings[b]
		if !ok {
			continue
		}
		logger.Debug().Str("command", string(cmd)).Msg("operator command received")
		c.Push(cmd)
	}
}
