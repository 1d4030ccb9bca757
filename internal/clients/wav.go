/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clients

import (
	"bytes"
	"encoding/binary"
)

const (
	fakeSampleRate = 8000
	fakeBitDepth   = 16
	fakeChannels   = 1
)

// synthesizeSilence builds a minimal valid mono 16-bit PCM WAV file whose
// length scales (loosely) with textLen, so FakeTTS output still varies
// per call without needing a real synthesizer.
func synthesizeSilence(textLen int) []byte {
	numSamples := fakeSampleRate / 10 // 100ms floor
	numSamples += textLen * 80        // roughly 80 samples/character
	dataSize := numSamples * fakeChannels * (fakeBitDepth / 8)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(fakeChannels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(fakeSampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(fakeSampleRate*fakeChannels*(fakeBitDepth/8)))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(fakeChannels*(fakeBitDepth/8)))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(fakeBitDepth))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes()
}
