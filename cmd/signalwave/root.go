/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	logger zerolog.Logger

	flagDryRun    bool
	flagNoWeather bool
	flagNoShows   bool
	flagDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "signalwave",
	Short: "Run the always-on AI radio station",
	Long: `signalwave drives the station's decide/play/announce/drain loop:
pulling songs from the Rotation Engine, pairing them with pre-rendered
intros and outros from the Content Store, and inserting time/weather/show
announcements at their scheduled windows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStation,
}

func init() {
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "print resolved configuration and exit")
	rootCmd.Flags().BoolVar(&flagNoWeather, "no-weather", false, "disable weather window selection")
	rootCmd.Flags().BoolVar(&flagNoShows, "no-shows", false, "disable show window selection")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "raise log verbosity")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitCodeError
		if asExitCodeError(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "signalwave: %v\n", exitErr.err)
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "signalwave: %v\n", err)
		os.Exit(2)
	}
}

// exitCodeError tags an error with the process exit code it should
// produce, so runStation can distinguish a startup failure (1) from a
// fatal runtime failure (2).
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func startupError(err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{code: 1, err: err}
}

func runtimeError(err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{code: 2, err: err}
}

func asExitCodeError(err error, target **exitCodeError) bool {
	ec, ok := err.(*exitCodeError)
	if !ok {
		return false
	}
	*target = ec
	return true
}
