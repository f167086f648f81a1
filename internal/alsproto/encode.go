package alsproto

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// EncodeDataPack emits the custom frames-before-control wire order (spec
// §4.A): all DataFrame entries first as repeated field 16, then the single
// Control variant in field-number order. This is the load-bearing
// encoder — callers must never fall back to emitting control before frames.
func EncodeDataPack(dp *DataPack) []byte {
	var buf []byte
	for _, f := range dp.Frames {
		buf = appendFrame(buf, f)
	}
	if dp.Control != nil {
		switch c := dp.Control.(type) {
		case ControlData:
			buf = protowire.AppendTag(buf, fieldDataPackData, protowire.VarintType)
			buf = protowire.AppendVarint(buf, boolToVarint(c.Value))
		case ControlPong:
			buf = protowire.AppendTag(buf, fieldDataPackPong, protowire.VarintType)
			buf = protowire.AppendVarint(buf, boolToVarint(c.Value))
		case ControlSegmentStartedAt:
			buf = protowire.AppendTag(buf, fieldDataPackSegmentStartedAt, protowire.VarintType)
			buf = protowire.AppendVarint(buf, uint64(c.Micros))
		case ControlCacheEnded:
			buf = protowire.AppendTag(buf, fieldDataPackCacheEnded, protowire.VarintType)
			buf = protowire.AppendVarint(buf, boolToVarint(c.Value))
		}
	}
	return buf
}

// FrameToBytes encodes a single DataFrame exactly as it would appear inside
// a DataPack's frames field (tag + length-delimited body). Used by the
// digest helpers.
func FrameToBytes(f *DataFrame) []byte {
	return appendFrame(nil, f)
}

func appendFrame(buf []byte, f *DataFrame) []byte {
	body := encodeMessage(f.Message)
	buf = protowire.AppendTag(buf, fieldDataPackFrames, protowire.BytesType)
	buf = protowire.AppendBytes(buf, body)
	return buf
}

func encodeMessage(m Message) []byte {
	if m == nil {
		return nil
	}
	var field protowire.Number
	var body []byte
	switch v := m.(type) {
	case *InstantiateObject:
		field = fieldFrameInstantiateObject
		body = encodeInstantiateObject(v)
	case *UpdateObject:
		field = fieldFrameUpdateObject
		body = encodeUpdateObject(v)
	case *DestroyObject:
		field = fieldFrameDestroyObject
		body = encodeDestroyObject(v)
	case *Room:
		field = fieldFrameRoom
		body = encodeRoom(v)
	case *AuthorizeResponse:
		field = fieldFrameAuthorizeResponse
		body = encodeAuthorizeResponse(v)
	case *JoinRoomResponse:
		field = fieldFrameJoinRoomResponse
		body = encodeJoinRoomResponse(v)
	default:
		return nil
	}
	var buf []byte
	buf = protowire.AppendTag(buf, field, protowire.BytesType)
	buf = protowire.AppendBytes(buf, body)
	// The result is the message wrapped in its DataFrame.message oneof field
	// (tag + length-delimited body); appendFrame nests it inside DataPack
	// field 16.
	return buf
}

func encodeInstantiateObject(o *InstantiateObject) []byte {
	var buf []byte
	buf = appendVarintField(buf, fieldObjID, uint64(int64(o.ObjectID)))
	buf = appendBytesField(buf, fieldOwnerID, o.OwnerID)
	buf = appendBytesField(buf, fieldPrefabName, o.PrefabName)
	buf = appendBytesField(buf, fieldInitData, o.InitData)
	buf = appendTarget(buf, o.Target)
	return buf
}

func encodeUpdateObject(o *UpdateObject) []byte {
	var buf []byte
	buf = appendVarintField(buf, fieldObjID, uint64(int64(o.ObjectID)))
	buf = appendVarintField(buf, fieldMethod, uint64(int64(o.Method)))
	buf = appendBytesField(buf, fieldPayload, o.Payload)
	buf = appendTarget(buf, o.Target)
	return buf
}

func encodeDestroyObject(o *DestroyObject) []byte {
	var buf []byte
	buf = appendVarintField(buf, fieldObjID, uint64(int64(o.ObjectID)))
	buf = appendTarget(buf, o.Target)
	return buf
}

func encodeRoom(r *Room) []byte {
	var buf []byte
	buf = appendBytesField(buf, fieldObjID, r.ID) // Room.id reuses field 1
	buf = appendVarintField(buf, fieldRoomStart, uint64(r.StartedAt))
	buf = appendVarintField(buf, fieldRoomEnd, uint64(r.EndedAt))
	return buf
}

func encodeAuthorizeResponse(a *AuthorizeResponse) []byte {
	var buf []byte
	buf = appendBytesField(buf, fieldPlayerID, a.PlayerID)
	buf = appendVarintField(buf, fieldRole, uint64(int64(a.Role)))
	return buf
}

func encodeJoinRoomResponse(j *JoinRoomResponse) []byte {
	var buf []byte
	if j.Room != nil {
		buf = appendMessageField(buf, fieldJoinRoom, encodeRoom(j.Room))
	}
	buf = appendVarintField(buf, fieldJoinedAt, uint64(j.JoinedAt))
	return buf
}

func appendTarget(buf []byte, t Target) []byte {
	if t == nil {
		return buf
	}
	switch v := t.(type) {
	case TargetCurrentPlayer:
		buf = appendMessageField(buf, fieldTargetCur, nil)
	case TargetRoomAll:
		inner := appendBytesField(nil, fieldTargetRID, v.RoomID)
		buf = appendMessageField(buf, fieldTargetRoom, inner)
	case TargetPlayerID:
		inner := appendBytesField(nil, fieldTargetPID, v.PlayerID)
		buf = appendMessageField(buf, fieldTargetPlyID, inner)
	}
	return buf
}

func appendVarintField(buf []byte, field protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, field, protowire.VarintType)
	buf = protowire.AppendVarint(buf, v)
	return buf
}

func appendBytesField(buf []byte, field protowire.Number, v []byte) []byte {
	buf = protowire.AppendTag(buf, field, protowire.BytesType)
	buf = protowire.AppendBytes(buf, v)
	return buf
}

func appendMessageField(buf []byte, field protowire.Number, body []byte) []byte {
	buf = protowire.AppendTag(buf, field, protowire.BytesType)
	buf = protowire.AppendBytes(buf, body)
	return buf
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
