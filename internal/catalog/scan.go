/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// MusicLibraryError wraps a fatal, unrecoverable scan failure: an
// unreadable root directory. Individual bad files never produce this;
// they are reported in ScanResult.Failed instead.
type MusicLibraryError struct {
	Path string
	Err  error
}

func (e *MusicLibraryError) Error() string {
	return fmt.Sprintf("music library: %s: %v", e.Path, e.Err)
}

func (e *MusicLibraryError) Unwrap() error { return e.Err }

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
}

func isAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

type scanJob struct {
	path string
	info os.FileInfo
}

type scanOutcome struct {
	song Song
	fail *ScanFailure
}

// ScanDirectory recursively walks root, reading metadata for each audio
// file with a bounded worker pool and returning the accepted songs plus
// any per-file failures. An unreadable root directory is fatal
// (MusicLibraryError); anything else is a reported ScanFailure.
func ScanDirectory(root string, reader MetadataReader) (ScanResult, error) {
	if reader == nil {
		reader = DefaultMetadataReader{}
	}

	if _, err := os.Stat(root); err != nil {
		return ScanResult{}, &MusicLibraryError{Path: root, Err: err}
	}

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan scanJob, workers*2)
	outcomes := make(chan scanOutcome, workers*2)

	var workersWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workersWG.Add(1)
		go func() {
			defer workersWG.Done()
			for job := range jobs {
				outcomes <- processScanJob(job, reader)
			}
		}()
	}

	var result ScanResult
	var collectWG sync.WaitGroup
	collectWG.Add(1)
	go func() {
		defer collectWG.Done()
		for o := range outcomes {
			if o.fail != nil {
				result.Failed = append(result.Failed, *o.fail)
				continue
			}
			result.Accepted = append(result.Accepted, o.song)
		}
	}()

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			result.Failed = append(result.Failed, ScanFailure{Path: path, Reason: err.Error()})
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !isAudioFile(info.Name()) {
			return nil
		}
		jobs <- scanJob{path: path, info: info}
		return nil
	})

	close(jobs)
	workersWG.Wait()
	close(outcomes)
	collectWG.Wait()

	if walkErr != nil {
		return result, &MusicLibraryError{Path: root, Err: walkErr}
	}
	return result, nil
}

func processScanJob(job scanJob, reader MetadataReader) scanOutcome {
	meta, err := reader.ReadMetadata(job.path)
	if err != nil {
		return scanOutcome{fail: &ScanFailure{Path: job.path, Reason: err.Error()}}
	}
	if meta.DurationSeconds <= 0 {
		return scanOutcome{fail: &ScanFailure{Path: job.path, Reason: "duration_seconds must be > 0"}}
	}

	song := Song{
		ID:              DeriveSongID(meta.Artist, meta.Title),
		Artist:          meta.Artist,
		Title:           meta.Title,
		Album:           meta.Album,
		Year:            meta.Year,
		DurationSeconds: meta.DurationSeconds,
		FileReference:   job.path,
	}
	return scanOutcome{song: song}
}

// DefaultMetadataReader derives artist/title from the filename
// ("Artist - Title.ext") and duration from nothing at all (callers in
// production wire a real probe; tag parsing is out of scope here).
// Files that don't match the naming convention fail with a reported
// ScanFailure rather than a guess.
type DefaultMetadataReader struct {
	// DurationSeconds is returned for every file, since this reader has
	// no way to probe real audio duration without an external tool.
	DurationSeconds float64
}

// ReadMetadata implements MetadataReader.
func (r DefaultMetadataReader) ReadMetadata(path string) (Metadata, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.SplitN(base, " - ", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Metadata{}, fmt.Errorf("filename %q does not match \"Artist - Title\" convention", filepath.Base(path))
	}

	duration := r.DurationSeconds
	if duration <= 0 {
		duration = 180 // placeholder when no real probe is configured
	}

	return Metadata{
		Artist:          strings.TrimSpace(parts[0]),
		Title:           strings.TrimSpace(parts[1]),
		DurationSeconds: duration,
	}, nil
}
