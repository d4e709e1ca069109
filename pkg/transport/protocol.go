package transport

import "encoding/binary"

// GATT characteristics of the panel.
const (
	WriteCharUUID  = "0000fa02-0000-1000-8000-00805f9b34fb"
	NotifyCharUUID = "0000fa03-0000-1000-8000-00805f9b34fb"
)

// ChunkSize is the largest payload slice sent per acknowledged chunk.
const ChunkSize = 4096

// Chunk header: [2B length LE][00 00][1B option][4B total size LE]
const chunkHeaderSize = 9

const (
	optFirst        byte = 0x00
	optContinuation byte = 0x02
)

// Acknowledgement codes carried by notifications. The first three accept a
// chunk; AckComplete accepts the whole payload.
const (
	AckContinue    byte = 0x00
	AckContinueAlt byte = 0x01
	AckContinueEnd byte = 0x02
	AckComplete    byte = 0x03
)

// ActivateCommand switches the panel into image mode. It must be sent after
// every connect.
var ActivateCommand = []byte{0x05, 0x00, 0x04, 0x01, 0x01}

// BrightnessCommand sets the panel brightness, clamped to 0..100.
func BrightnessCommand(level int) []byte {
	level = min(max(level, 0), 100)
	return []byte{0x05, 0x00, 0x04, 0x80, byte(level)}
}

// PowerCommand switches the panel on or off.
func PowerCommand(on bool) []byte {
	var v byte
	if on {
		v = 1
	}
	return []byte{0x05, 0x00, 0x07, 0x01, v}
}

// ParseAck extracts the acknowledgement code from a notification. Two
// forms exist: the 5-byte status frame 05 xx xx xx <code> and a bare
// single code byte. Anything else, including unknown codes, is not an ack.
func ParseAck(data []byte) (byte, bool) {
	var code byte
	switch {
	case len(data) >= 5 && data[0] == 0x05:
		code = data[4]
	case len(data) == 1:
		code = data[0]
	default:
		return 0, false
	}
	if code > AckComplete {
		return 0, false
	}
	return code, true
}

// putChunkHeader writes the framing header for a chunk of n payload bytes.
func putChunkHeader(dst []byte, n int, first bool, total int) {
	binary.LittleEndian.PutUint16(dst[0:2], uint16(n+chunkHeaderSize))
	dst[2], dst[3] = 0x00, 0x00
	dst[4] = optContinuation
	if first {
		dst[4] = optFirst
	}
	binary.LittleEndian.PutUint32(dst[5:9], uint32(total))
}
