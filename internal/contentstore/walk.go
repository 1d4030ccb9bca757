/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package contentstore

import (
	"os"
	"path/filepath"
)

// enumerateFilesystem walks Root directly, used when no secondary index
// is configured.
func (s *Store) enumerateFilesystem(filter Filter) ([]Key, error) {
	var keys []Key

	contentTypes := []ContentType{SongIntro, SongOutro, TimeAnnouncement, WeatherAnnounce, ShowIntro, ShowOutro, Handoff}
	if filter.ContentType != "" {
		contentTypes = []ContentType{filter.ContentType}
	}

	for _, ct := range contentTypes {
		ctDir := filepath.Join(s.Root, string(ct))
		personas, err := os.ReadDir(ctDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, personaEntry := range personas {
			if !personaEntry.IsDir() {
				continue
			}
			if filter.PersonaID != "" && personaEntry.Name() != filter.PersonaID {
				continue
			}

			targets, err := os.ReadDir(filepath.Join(ctDir, personaEntry.Name()))
			if err != nil {
				return nil, err
			}
			for _, targetEntry := range targets {
				if !targetEntry.IsDir() {
					continue
				}
				key := Key{ContentType: ct, PersonaID: personaEntry.Name(), TargetID: targetEntry.Name()}

				if filter.Status != "" {
					item, err := s.ReadItem(key)
					if err != nil {
						return nil, err
					}
					if item.Status != filter.Status {
						continue
					}
				}
				keys = append(keys, key)
			}
		}
	}

	return keys, nil
}

// AllContentTypes returns the closed set of content types, used by
// pipeline target enumeration and CLI flags.
func AllContentTypes() []ContentType {
	return []ContentType{SongIntro, SongOutro, TimeAnnouncement, WeatherAnnounce, ShowIntro, ShowOutro, Handoff}
}
