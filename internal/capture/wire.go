// Package capture implements the ALS capture client: a stateful TCP actor
// with hand-crafted length-prefixed framing, a background keepalive thread,
// graceful shutdown, reconnection, and durable buffered persistence of the
// raw wire stream (spec §4.C).
package capture

import "google.golang.org/protobuf/encoding/protowire"

// appendVarint writes v as a protobuf base-128 little-endian varint.
func appendVarint(buf []byte, v uint64) []byte {
	return protowire.AppendVarint(buf, v)
}

// AuthenticateRecipe builds the fixed Authenticate request for token,
// including its 2-byte big-endian length prefix (spec §6).
func AuthenticateRecipe(token string) []byte {
	tokenLen := uint64(len(token))
	var body []byte
	body = append(body, 0x00, 0x82, 0x01)
	body = appendVarint(body, tokenLen+7)
	body = append(body, 0x82, 0x01)
	body = appendVarint(body, tokenLen+3)
	body = append(body, 0x0a)
	body = appendVarint(body, tokenLen)
	body = append(body, token...)
	return withLengthPrefix(body)
}

// JoinRoomRecipe builds the fixed JoinRoom request for roomID (spec §6).
func JoinRoomRecipe(roomID string) []byte {
	var body []byte
	body = append(body, 0x00, 0x82, 0x01, 0x31, 0x9a, 0x01, 0x2e, 0x0a)
	body = appendVarint(body, uint64(len(roomID)))
	body = append(body, roomID...)
	return withLengthPrefix(body)
}

// KeepAliveRecipe is the fixed KeepAlive request (spec §6, §8 golden vector
// 1): "00 03 00 48 01".
func KeepAliveRecipe() []byte {
	return withLengthPrefix([]byte{0x00, 0x48, 0x01})
}

// withLengthPrefix prepends a 2-byte big-endian length counting the bytes
// of body, matching the keepalive golden vector (body "00 48 01" -> prefix
// "00 03").
func withLengthPrefix(body []byte) []byte {
	n := len(body)
	out := make([]byte, 2+n)
	out[0] = byte(n >> 8)
	out[1] = byte(n)
	copy(out[2:], body)
	return out
}
