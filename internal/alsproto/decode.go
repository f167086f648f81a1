package alsproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/alsstream/als-pipeline/internal/alserrors"
)

// DecodeDataPack parses a DataPack from its wire bytes. The encoder always
// emits frames before control, but the decoder accepts either order: a
// record produced by another implementation, or a hand-built test fixture,
// may not follow the same convention, and nothing about correctness depends
// on order at decode time.
func DecodeDataPack(b []byte) (*DataPack, error) {
	dp := &DataPack{}
	off := 0
	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, alserrors.NewCodecError("decode.datapack.tag", int64(off), fmt.Errorf("%w", protowire.ParseError(n)))
		}
		off += n
		switch num {
		case fieldDataPackFrames:
			body, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, wrapCodec("decode.datapack.frames", off, err)
			}
			off += m
			frame, err := decodeFrame(body)
			if err != nil {
				return nil, wrapCodec("decode.datapack.frame", off, err)
			}
			dp.Frames = append(dp.Frames, frame)
		case fieldDataPackData:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, wrapCodec("decode.datapack.data", off, err)
			}
			off += m
			dp.Control = ControlData{Value: v != 0}
		case fieldDataPackPong:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, wrapCodec("decode.datapack.pong", off, err)
			}
			off += m
			dp.Control = ControlPong{Value: v != 0}
		case fieldDataPackSegmentStartedAt:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, wrapCodec("decode.datapack.segment_started_at", off, err)
			}
			off += m
			dp.Control = ControlSegmentStartedAt{Micros: int64(v)}
		case fieldDataPackCacheEnded:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, wrapCodec("decode.datapack.cache_ended", off, err)
			}
			off += m
			dp.Control = ControlCacheEnded{Value: v != 0}
		default:
			m := protowire.ConsumeFieldValue(num, typ, b[off:])
			if m < 0 {
				return nil, alserrors.NewCodecError("decode.datapack.skip", int64(off), fmt.Errorf("%w", protowire.ParseError(m)))
			}
			off += m
		}
	}
	return dp, nil
}

func decodeFrame(body []byte) (*DataFrame, error) {
	num, typ, n := protowire.ConsumeTag(body)
	if n < 0 {
		return nil, fmt.Errorf("frame: %w", protowire.ParseError(n))
	}
	inner, m, err := consumeBytes(body, n, typ)
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}
	_ = m
	var msg Message
	switch num {
	case fieldFrameInstantiateObject:
		msg, err = decodeInstantiateObject(inner)
	case fieldFrameUpdateObject:
		msg, err = decodeUpdateObject(inner)
	case fieldFrameDestroyObject:
		msg, err = decodeDestroyObject(inner)
	case fieldFrameRoom:
		msg, err = decodeRoom(inner)
	case fieldFrameAuthorizeResponse:
		msg, err = decodeAuthorizeResponse(inner)
	case fieldFrameJoinRoomResponse:
		msg, err = decodeJoinRoomResponse(inner)
	default:
		return nil, fmt.Errorf("frame: unknown message field %d", num)
	}
	if err != nil {
		return nil, err
	}
	return &DataFrame{Message: msg}, nil
}

func decodeInstantiateObject(b []byte) (*InstantiateObject, error) {
	o := &InstantiateObject{}
	off := 0
	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, fmt.Errorf("instantiate_object: %w", protowire.ParseError(n))
		}
		off += n
		switch num {
		case fieldObjID:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.ObjectID = int32(v)
		case fieldOwnerID:
			v, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.OwnerID = v
		case fieldPrefabName:
			v, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.PrefabName = v
		case fieldInitData:
			v, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.InitData = v
		case fieldTargetCur, fieldTargetRoom, fieldTargetPlyID:
			t, m, err := decodeTargetField(b, off, num, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.Target = t
		default:
			m := protowire.ConsumeFieldValue(num, typ, b[off:])
			if m < 0 {
				return nil, fmt.Errorf("instantiate_object: %w", protowire.ParseError(m))
			}
			off += m
		}
	}
	return o, nil
}

func decodeUpdateObject(b []byte) (*UpdateObject, error) {
	o := &UpdateObject{}
	off := 0
	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, fmt.Errorf("update_object: %w", protowire.ParseError(n))
		}
		off += n
		switch num {
		case fieldObjID:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.ObjectID = int32(v)
		case fieldMethod:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.Method = int32(v)
		case fieldPayload:
			v, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.Payload = v
		case fieldTargetCur, fieldTargetRoom, fieldTargetPlyID:
			t, m, err := decodeTargetField(b, off, num, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.Target = t
		default:
			m := protowire.ConsumeFieldValue(num, typ, b[off:])
			if m < 0 {
				return nil, fmt.Errorf("update_object: %w", protowire.ParseError(m))
			}
			off += m
		}
	}
	return o, nil
}

func decodeDestroyObject(b []byte) (*DestroyObject, error) {
	o := &DestroyObject{}
	off := 0
	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, fmt.Errorf("destroy_object: %w", protowire.ParseError(n))
		}
		off += n
		switch num {
		case fieldObjID:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.ObjectID = int32(v)
		case fieldTargetCur, fieldTargetRoom, fieldTargetPlyID:
			t, m, err := decodeTargetField(b, off, num, typ)
			if err != nil {
				return nil, err
			}
			off += m
			o.Target = t
		default:
			m := protowire.ConsumeFieldValue(num, typ, b[off:])
			if m < 0 {
				return nil, fmt.Errorf("destroy_object: %w", protowire.ParseError(m))
			}
			off += m
		}
	}
	return o, nil
}

func decodeRoom(b []byte) (*Room, error) {
	r := &Room{}
	off := 0
	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, fmt.Errorf("room: %w", protowire.ParseError(n))
		}
		off += n
		switch num {
		case fieldObjID:
			v, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			r.ID = v
		case fieldRoomStart:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			r.StartedAt = int64(v)
		case fieldRoomEnd:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			r.EndedAt = int64(v)
		default:
			m := protowire.ConsumeFieldValue(num, typ, b[off:])
			if m < 0 {
				return nil, fmt.Errorf("room: %w", protowire.ParseError(m))
			}
			off += m
		}
	}
	return r, nil
}

func decodeAuthorizeResponse(b []byte) (*AuthorizeResponse, error) {
	a := &AuthorizeResponse{}
	off := 0
	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, fmt.Errorf("authorize_response: %w", protowire.ParseError(n))
		}
		off += n
		switch num {
		case fieldPlayerID:
			v, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			a.PlayerID = v
		case fieldRole:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			a.Role = int32(v)
		default:
			m := protowire.ConsumeFieldValue(num, typ, b[off:])
			if m < 0 {
				return nil, fmt.Errorf("authorize_response: %w", protowire.ParseError(m))
			}
			off += m
		}
	}
	return a, nil
}

func decodeJoinRoomResponse(b []byte) (*JoinRoomResponse, error) {
	j := &JoinRoomResponse{}
	off := 0
	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, fmt.Errorf("join_room_response: %w", protowire.ParseError(n))
		}
		off += n
		switch num {
		case fieldJoinRoom:
			v, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			room, err := decodeRoom(v)
			if err != nil {
				return nil, err
			}
			j.Room = room
		case fieldJoinedAt:
			v, m, err := consumeVarint(b, off, typ)
			if err != nil {
				return nil, err
			}
			off += m
			j.JoinedAt = int64(v)
		default:
			m := protowire.ConsumeFieldValue(num, typ, b[off:])
			if m < 0 {
				return nil, fmt.Errorf("join_room_response: %w", protowire.ParseError(m))
			}
			off += m
		}
	}
	return j, nil
}

func decodeTargetField(b []byte, off int, num protowire.Number, typ protowire.Type) (Target, int, error) {
	body, n, err := consumeBytes(b, off, typ)
	if err != nil {
		return nil, 0, err
	}
	switch num {
	case fieldTargetCur:
		return TargetCurrentPlayer{}, n, nil
	case fieldTargetRoom:
		roomID, err := consumeSingleBytesField(body, fieldTargetRID)
		if err != nil {
			return nil, 0, err
		}
		return TargetRoomAll{RoomID: roomID}, n, nil
	case fieldTargetPlyID:
		playerID, err := consumeSingleBytesField(body, fieldTargetPID)
		if err != nil {
			return nil, 0, err
		}
		return TargetPlayerID{PlayerID: playerID}, n, nil
	default:
		return nil, 0, fmt.Errorf("target: unexpected field %d", num)
	}
}

func consumeSingleBytesField(b []byte, want protowire.Number) ([]byte, error) {
	off := 0
	for off < len(b) {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			return nil, fmt.Errorf("%w", protowire.ParseError(n))
		}
		off += n
		if num == want && typ == protowire.BytesType {
			v, m, err := consumeBytes(b, off, typ)
			if err != nil {
				return nil, err
			}
			_ = m
			return v, nil
		}
		m := protowire.ConsumeFieldValue(num, typ, b[off:])
		if m < 0 {
			return nil, fmt.Errorf("%w", protowire.ParseError(m))
		}
		off += m
	}
	return nil, nil
}

func consumeVarint(b []byte, off int, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.VarintType {
		n := protowire.ConsumeFieldValue(0, typ, b[off:])
		return 0, n, fmt.Errorf("expected varint, got wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(b[off:])
	if n < 0 {
		return 0, 0, fmt.Errorf("%w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytes(b []byte, off int, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		n := protowire.ConsumeFieldValue(0, typ, b[off:])
		return nil, n, fmt.Errorf("expected bytes, got wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(b[off:])
	if n < 0 {
		return nil, 0, fmt.Errorf("%w", protowire.ParseError(n))
	}
	return v, n, nil
}

func wrapCodec(op string, offset int, err error) error {
	return alserrors.NewCodecError(op, int64(offset), err)
}
