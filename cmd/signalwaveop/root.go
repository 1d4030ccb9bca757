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

var logger zerolog.Logger

var (
	flagIntros     bool
	flagOutros     bool
	flagTime       bool
	flagWeather    bool
	flagShows      bool
	flagHandoffs   bool
	flagAllContent bool

	flagPersona   string
	flagLimit     int
	flagRandom    bool
	flagStage     string
	flagSkipAudio bool
	flagResume    bool
	flagDryRun    bool
	flagTest      bool
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "signalwaveop",
	Short: "Batch-generate pre-rendered station content",
	Long: `signalwaveop drives songs and announcement slots through
Generate -> Audit -> Synthesize against the Writer, Auditor, and TTS
backends, writing results into the content store and tracking progress
in a resumable checkpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPipeline,
}

func init() {
	rootCmd.Flags().BoolVar(&flagIntros, "intros", false, "select SongIntro targets")
	rootCmd.Flags().BoolVar(&flagOutros, "outros", false, "select SongOutro targets")
	rootCmd.Flags().BoolVar(&flagTime, "time", false, "select TimeAnnouncement targets")
	rootCmd.Flags().BoolVar(&flagWeather, "weather", false, "select WeatherAnnouncement targets")
	rootCmd.Flags().BoolVar(&flagShows, "shows", false, "select ShowIntro/ShowOutro targets")
	rootCmd.Flags().BoolVar(&flagHandoffs, "handoffs", false, "select Handoff targets")
	rootCmd.Flags().BoolVar(&flagAllContent, "all-content", false, "select every content type")

	rootCmd.Flags().StringVar(&flagPersona, "persona", "all", `persona id, or "all"`)
	rootCmd.Flags().IntVar(&flagLimit, "limit", 0, "cap on songs-like targets (0 = no cap)")
	rootCmd.Flags().BoolVar(&flagRandom, "random", false, "shuffle order within the capped set")
	rootCmd.Flags().StringVar(&flagStage, "stage", "all", "generate|audit|synthesize|all")
	rootCmd.Flags().BoolVar(&flagSkipAudio, "skip-audio", false, "equivalent to --stage generate,audit")
	rootCmd.Flags().BoolVar(&flagResume, "resume", false, "continue from checkpoint")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "enumerate targets without calling any backend")
	rootCmd.Flags().BoolVar(&flagTest, "test", false, "enable fake-auditor and fake-TTS mode")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "raise log verbosity")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitCodeError
		if asExitCodeError(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "signalwaveop: %v\n", exitErr.err)
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "signalwaveop: %v\n", err)
		os.Exit(2)
	}
}

// exitCodeError tags an error with the process exit code it should
// produce: 1 for invalid arguments, 2 for an unrecoverable run failure.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func argError(err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{code: 1, err: err}
}

func fatalError(err error) error {
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
