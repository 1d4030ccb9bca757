/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package contentstore is the filesystem-backed, content-addressed store
// of generated speech artifacts: one directory per (content type, persona,
// target) key holding script.txt, audit.json, audio.wav and an optional
// flagged marker.
package contentstore

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// ContentType is the closed set of generated content kinds.
type ContentType string

const (
	SongIntro        ContentType = "SongIntro"
	SongOutro        ContentType = "SongOutro"
	TimeAnnouncement ContentType = "TimeAnnouncement"
	WeatherAnnounce  ContentType = "WeatherAnnouncement"
	ShowIntro        ContentType = "ShowIntro"
	ShowOutro        ContentType = "ShowOutro"
	Handoff          ContentType = "Handoff"
)

// Status derives from which files are present under a Key's directory.
type Status string

const (
	Absent      Status = "Absent"
	ScriptOnly  Status = "ScriptOnly"
	AuditedPass Status = "AuditedPass"
	AuditedFail Status = "AuditedFail"
	AudioReady  Status = "AudioReady"
	Flagged     Status = "Flagged"
)

// Key uniquely identifies one content item.
type Key struct {
	ContentType ContentType
	PersonaID   string
	TargetID    string
}

var filesystemSafe = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// Dir returns the canonical directory for k under root.
func (k Key) Dir(root string) string {
	return filepath.Join(root, string(k.ContentType), k.PersonaID, k.TargetID)
}

// Validate reports whether every path component of k is filesystem-safe.
func (k Key) Validate() error {
	for name, v := range map[string]string{
		"content_type": string(k.ContentType),
		"persona_id":   k.PersonaID,
		"target_id":    k.TargetID,
	} {
		if v == "" || !filesystemSafe.MatchString(v) {
			return fmt.Errorf("contentstore: %s %q is not filesystem-safe", name, v)
		}
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ContentType, k.PersonaID, k.TargetID)
}
