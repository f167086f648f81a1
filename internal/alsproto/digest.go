package alsproto

import "crypto/sha256"

// PacketDigest hashes a packet's raw on-wire bytes (spec §8, "packet
// digest"): the same bytes that would be written to a persisted stream,
// independent of framing.
func PacketDigest(raw []byte) [32]byte {
	return sha256.Sum256(raw)
}

// FrameDigest hashes a single encoded frame, used by the formatter and diff
// tool to compare frame-level content across two captures regardless of
// which DataPack they were bundled into.
func FrameDigest(f *DataFrame) [32]byte {
	return sha256.Sum256(FrameToBytes(f))
}
