package codec

import "github.com/sigurn/crc16"

var (
	xmodemTable = crc16.MakeTable(crc16.CRC16_XMODEM)
	ccittTable  = crc16.MakeTable(crc16.CRC16_GENIBUS)
)

// Checksum8 is the sum of all bytes modulo 256.
func Checksum8(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Checksum16LE is the sum of all little endian 16-bit words modulo 65536.
// A trailing odd byte is added as the low byte of a word.
func Checksum16LE(data []byte) uint16 {
	var sum uint16
	for i := 0; i < len(data); i += 2 {
		w := uint16(data[i])
		if i+1 < len(data) {
			w |= uint16(data[i+1]) << 8
		}
		sum += w
	}
	return sum
}

// ChecksumXor8 is the exclusive or of all bytes and init.
func ChecksumXor8(init byte, data []byte) byte {
	sum := init
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// CRC16XModem is the CRC-16 with polynomial 0x1021 and initial value 0,
// most significant bit first.
func CRC16XModem(data []byte) uint16 {
	return crc16.Checksum(data, xmodemTable)
}

// CRC16CCITT is the CRC-16 with polynomial 0x1021 and initial value 0xffff,
// most significant bit first, with the result inverted.
func CRC16CCITT(data []byte) uint16 {
	return crc16.Checksum(data, ccittTable)
}
