/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// EncodeWAV serializes mono float32 samples as a 16-bit PCM WAV file.
// Samples are clamped to [-1, 1] before conversion.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	dataSize := len(samples) * 2
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	writeUint32(&buf, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeUint32(&buf, 16)                      // fmt chunk size
	writeUint16(&buf, wavFormatPCM)            // PCM
	writeUint16(&buf, 1)                       // mono
	writeUint32(&buf, uint32(sampleRate))      // sample rate
	writeUint32(&buf, uint32(sampleRate*2))    // byte rate
	writeUint16(&buf, 2)                       // block align
	writeUint16(&buf, 16)                      // bits per sample

	buf.WriteString("data")
	writeUint32(&buf, uint32(dataSize))

	for _, s := range samples {
		clamped := math.Max(-1, math.Min(1, float64(s)))
		writeUint16(&buf, uint16(int16(clamped*32767)))
	}

	return buf.Bytes(), nil
}

// DecodeWAV parses a WAV file into mono float32 samples and the sample
// rate. 16-bit PCM and 32-bit float formats are supported; multi-channel
// audio is downmixed by averaging.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < 44 {
		return nil, 0, fmt.Errorf("wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		format     uint16
		channels   uint16
		sampleRate uint32
		bits       uint16
		raw        []byte
		haveFmt    bool
	)

	// Walk chunks; fmt must precede data
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			raw = data[body : body+size]
		}

		// Chunks are word-aligned
		pos = body + size
		if size%2 == 1 {
			pos++
		}
		if raw != nil && haveFmt {
			break
		}
	}

	if !haveFmt {
		return nil, 0, fmt.Errorf("missing fmt chunk")
	}
	if raw == nil {
		return nil, 0, fmt.Errorf("missing data chunk")
	}
	if channels == 0 {
		return nil, 0, fmt.Errorf("invalid channel count: 0")
	}

	var samples []float32
	switch {
	case format == wavFormatPCM && bits == 16:
		samples = make([]float32, 0, len(raw)/2)
		for i := 0; i+2 <= len(raw); i += 2 {
			v := int16(binary.LittleEndian.Uint16(raw[i : i+2]))
			samples = append(samples, float32(v)/32768)
		}
	case format == wavFormatFloat && bits == 32:
		samples = make([]float32, 0, len(raw)/4)
		for i := 0; i+4 <= len(raw); i += 4 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(raw[i : i+4]))
			samples = append(samples, v)
		}
	default:
		return nil, 0, fmt.Errorf("unsupported wav format %d (%d-bit)", format, bits)
	}

	if channels > 1 {
		mono := make([]float32, 0, len(samples)/int(channels))
		n := int(channels)
		for i := 0; i+n <= len(samples); i += n {
			var sum float32
			for c := 0; c < n; c++ {
				sum += samples[i+c]
			}
			mono = append(mono, sum/float32(n))
		}
		samples = mono
	}

	return samples, int(sampleRate), nil
}

// BytesToSamples converts little-endian PCM16 bytes (the WebSocket ingest
// wire format) to float32 samples
func BytesToSamples(raw []byte) []float32 {
	samples := make([]float32, 0, len(raw)/2)
	for i := 0; i+2 <= len(raw); i += 2 {
		v := int16(binary.LittleEndian.Uint16(raw[i : i+2]))
		samples = append(samples, float32(v)/32768)
	}
	return samples
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
