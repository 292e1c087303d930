// Package storage persists group samples as framed, compressed artifacts.
//
// # Artifact layout
//
// Each group is stored in one file, <run>/<group>.dlog:
//
//	header:  "DLG1" | uint32 n | n bytes JSON Header | uint32 crc32(JSON)
//	frame*:  "FRM1" | uint32 rows | uint32 rawLen | uint32 payloadLen |
//	         uint32 crc32(rows|rawLen|payloadLen|payload) | payload
//
// Integers are little endian and checksums use the Castagnoli polynomial.
// A frame checksum covers the three length fields as well as the payload,
// so a damaged length is rejected before anything is allocated for it.
// A payload is the frame's columnar.Batch encoding compressed with the codec
// named in the header. The header alone is a valid artifact with zero rows,
// and each flush appends one frame, so reading all frames in file order
// yields every persisted row in append order.
package storage

import (
	"encoding/binary"
	"hash/crc32"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

const (
	// FileExtension is the suffix of group artifacts.
	FileExtension = ".dlog"
	// FormatVersion is the layout version written into headers.
	FormatVersion = 1

	frameHeaderSize = 20
	// headerLimit caps the JSON header so a corrupt length cannot force a
	// huge allocation.
	headerLimit = 64 << 20
)

var (
	headerMagic = []byte("DLG1")
	frameMagic  = []byte("FRM1")
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

// Header is the self-describing prologue of an artifact
type Header struct {
	Version     int                   `json:"version"`
	Group       string                `json:"group"`
	Codec       compression.Algorithm `json:"codec"`
	Level       compression.Level     `json:"level"`
	Created     time.Time             `json:"created"`
	Fingerprint string                `json:"fingerprint,omitempty"`
	Columns     []columnar.ColumnSpec `json:"columns"`
}

// ArtifactPath returns the artifact location of group inside dir.
func ArtifactPath(dir, group string) string {
	return filepath.Join(dir, group+FileExtension)
}

// encodeHeader renders the framed header.
func encodeHeader(h *Header) ([]byte, error) {
	body, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(headerMagic)+8+len(body))
	buf = append(buf, headerMagic...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(body)))
	buf = append(buf, body...)
	buf = binary.LittleEndian.AppendUint32(buf, crc32.Checksum(body, crcTable))
	return buf, nil
}

// DecodeHeader parses the header at the start of data and returns it with
// the number of bytes it occupies.
func DecodeHeader(data []byte) (*Header, int, error) {
	if len(data) < len(headerMagic)+4 || string(data[:4]) != string(headerMagic) {
		return nil, 0, dlerrors.New(dlerrors.ErrorTypeRead, "not a data logger artifact")
	}
	n := int(binary.LittleEndian.Uint32(data[4:8]))
	if n > headerLimit || len(data) < 8+n+4 {
		return nil, 0, dlerrors.Newf(dlerrors.ErrorTypeRead, "artifact header truncated: need %d bytes, have %d", 8+n+4, len(data))
	}
	body := data[8 : 8+n]
	if sum := binary.LittleEndian.Uint32(data[8+n:]); sum != crc32.Checksum(body, crcTable) {
		return nil, 0, dlerrors.New(dlerrors.ErrorTypeRead, "artifact header checksum mismatch")
	}

	var h Header
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, 0, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "invalid artifact header")
	}
	if h.Version != FormatVersion {
		return nil, 0, dlerrors.Newf(dlerrors.ErrorTypeRead, "unsupported artifact version %d", h.Version)
	}
	return &h, 8 + n + 4, nil
}

// FrameInfo describes one persisted frame
type FrameInfo struct {
	Offset     int64
	Rows       int
	RawSize    int
	PayloadLen int
}

func putFrameHeader(dst []byte, rows, rawSize int, payload []byte) {
	copy(dst[0:4], frameMagic)
	binary.LittleEndian.PutUint32(dst[4:], uint32(rows))
	binary.LittleEndian.PutUint32(dst[8:], uint32(rawSize))
	binary.LittleEndian.PutUint32(dst[12:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(dst[16:], frameChecksum(dst[4:16], payload))
}

func frameChecksum(lengths, payload []byte) uint32 {
	return crc32.Update(crc32.Checksum(lengths, crcTable), crcTable, payload)
}

// nextFrame validates the frame at data[off:] and returns its payload.
func nextFrame(data []byte, off int) (FrameInfo, []byte, error) {
	info := FrameInfo{Offset: int64(off)}
	rest := data[off:]
	if len(rest) < frameHeaderSize {
		return info, nil, dlerrors.Newf(dlerrors.ErrorTypeRead, "frame header truncated at offset %d", off)
	}
	if string(rest[:4]) != string(frameMagic) {
		return info, nil, dlerrors.Newf(dlerrors.ErrorTypeRead, "bad frame magic at offset %d", off)
	}
	info.Rows = int(binary.LittleEndian.Uint32(rest[4:]))
	info.RawSize = int(binary.LittleEndian.Uint32(rest[8:]))
	info.PayloadLen = int(binary.LittleEndian.Uint32(rest[12:]))
	sum := binary.LittleEndian.Uint32(rest[16:])

	if len(rest)-frameHeaderSize < info.PayloadLen {
		return info, nil, dlerrors.Newf(dlerrors.ErrorTypeRead,
			"frame at offset %d truncated: payload needs %d bytes, have %d", off, info.PayloadLen, len(rest)-frameHeaderSize)
	}
	payload := rest[frameHeaderSize : frameHeaderSize+info.PayloadLen]
	if frameChecksum(rest[4:16], payload) != sum {
		return info, nil, dlerrors.Newf(dlerrors.ErrorTypeRead, "frame at offset %d checksum mismatch", off)
	}
	return info, payload, nil
}
