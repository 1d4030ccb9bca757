/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package jsoncodec centralizes the pretty-printed, trailing-newline JSON
// encoding used for every stable on-disk artifact (spec §6.1: "All JSON
// files are UTF-8, pretty-printed, with a trailing newline"). It uses
// goccy/go-json, a drop-in faster replacement for encoding/json, so every
// caller gets the same codec and the same formatting guarantee.
package jsoncodec

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Marshal renders v as pretty-printed JSON with a trailing newline.
func Marshal(v any) ([]byte, error) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	buf = append(buf, '\n')
	return buf, nil
}

// Unmarshal parses data (tolerating a missing trailing newline) into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(bytes.TrimSpace(data), v)
}
