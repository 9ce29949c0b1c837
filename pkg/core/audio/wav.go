package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// EncodeWAV wraps raw S16LE PCM in a RIFF/WAVE container. This is the one
// container format the client produces for upload.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const (
		bitsPerSample = 16
		headerSize    = 44
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := make([]byte, headerSize+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[headerSize:], pcm)
	return buf
}

// WAVInfo describes the PCM payload of a decoded WAV container.
type WAVInfo struct {
	SampleRate int
	Channels   int
	PCM        []byte
}

var errNotWAV = errors.New("not a RIFF/WAVE container")

// DecodeWAV extracts S16LE PCM from a WAV container. Only uncompressed
// 16-bit PCM is accepted; anything else is a decode error, not a transcode
// request.
func DecodeWAV(data []byte) (*WAVInfo, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	info := &WAVInfo{}
	var haveFmt bool
	off := 12
	for off+8 <= len(data) {
		chunkID := string(data[off : off+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+chunkLen > len(data) {
			chunkLen = len(data) - body
		}
		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, fmt.Errorf("wav: fmt chunk too short (%d bytes)", chunkLen)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || bits != 16 {
				return nil, fmt.Errorf("wav: unsupported format %d/%d-bit", format, bits)
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			haveFmt = true
		case "data":
			info.PCM = data[body : body+chunkLen]
		}
		// Chunks are word-aligned.
		off = body + chunkLen + chunkLen%2
	}

	if !haveFmt || info.PCM == nil {
		return nil, errors.New("wav: missing fmt or data chunk")
	}
	return info, nil
}
