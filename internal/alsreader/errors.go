package alsreader

import "fmt"

func errShortRecord(totalLen uint16) error {
	return fmt.Errorf("record length %d is shorter than the 9-byte standard header", totalLen)
}

func errBadMarker(marker byte) error {
	return fmt.Errorf("unexpected live marker byte 0x%02x, want 0x01", marker)
}
