/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package command

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushNonBlockingDropsWhenFull(t *testing.T) {
	c := &Channel{ch: make(chan Command, 1)}
	c.Push(Pause)
	c.Push(Skip) // channel full: evicts Pause, the oldest pending command

	require.Len(t, c.ch, 1)
	assert.Equal(t, Skip, <-c.ch)
}

func TestReadFromTranslatesRecognizedKeys(t *testing.T) {
	c := NewChannel()
	r := bytes.NewBufferString("qpx")

	err := c.ReadFrom(context.Background(), r, zerolog.Nop())
	require.Error(t, err) // io.EOF once the buffer is exhausted

	var got []Command
	for {
		select {
		case cmd := <-c.Commands():
			got = append(got, cmd)
		default:
			goto done
		}
	}
done:
	assert.Equal(t, []Command{Quit, Pause}, got)
}

func TestReadFromRespectsContextCancellation(t *testing.T) {
	c := NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	err := c.ReadFrom(ctx, pr, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}
