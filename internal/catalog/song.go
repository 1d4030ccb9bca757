/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog owns the song library: scanning directories for audio
// files, deriving stable song ids, and persisting the catalog as a single
// atomically-replaced JSON document.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Song is one entry in the library.
type Song struct {
	ID              string  `json:"id"`
	Artist          string  `json:"artist"`
	Title           string  `json:"title"`
	Album           string  `json:"album,omitempty"`
	Year            string  `json:"year,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	FileReference   string  `json:"file_reference"`
}

// DeriveSongID computes the stable, deterministic id for (artist, title).
// Rescanning the same file twice yields the same id; changing the artist
// or title tag produces a different id entirely (the old record is left
// in the catalog for the operator to reconcile).
//
// Normalization is deliberately shallow: Unicode NFKC form plus case
// folding, with whitespace collapsed. Diacritics are preserved so
// "Motörhead" and "Motorhead" remain distinct songs rather than silently
// colliding.
func DeriveSongID(artist, title string) string {
	key := normalizeForID(artist) + "|" + normalizeForID(title)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:24]
}

var caseFolder = cases.Fold()

func normalizeForID(s string) string {
	s = norm.NFKC.String(s)
	s = caseFolder.String(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Metadata is what a MetadataReader extracts from a candidate audio file.
type Metadata struct {
	Artist          string
	Title           string
	Album           string
	Year            string
	DurationSeconds float64
}

// MetadataReader extracts tag-adjacent metadata from a file on disk.
// Real tag parsing is out of scope; the default implementation in
// scan.go derives artist and title from the filename alone.
type MetadataReader interface {
	ReadMetadata(path string) (Metadata, error)
}

// ScanResult is returned by ScanDirectory.
type ScanResult struct {
	Accepted []Song
	Failed   []ScanFailure
}

// ScanFailure records one file that could not be processed; a single bad
// file is a reported failure, never a fatal scan error.
type ScanFailure struct {
	Path   string
	Reason string
}
