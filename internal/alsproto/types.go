// Package alsproto implements the ALS capture-protocol wire codec: the
// custom field-ordered protobuf emitter and decoder, and the SHA-256 digest
// helpers consumed by the formatter and diff tool. The three on-disk packet
// framings are read by package alsreader.
//
// The data model mirrors the protobuf schema the live server speaks. Tagged
// unions (DataPack.Control, DataFrame.Message, and the Target shared by the
// three object messages) follow the same shape protoc-gen-go emits for a
// oneof: a small interface with an unexported marker method, implemented by
// one wrapper struct per variant, dispatched with a type switch rather than
// a class hierarchy.
package alsproto

import "time"

// Field numbers are fixed for wire compatibility (spec §4.A). The exact
// layout of fields nested inside InstantiateObject/UpdateObject/DestroyObject/
// Room/AuthorizeResponse/JoinRoomResponse is not given by the upstream
// protocol description available to this implementation; the numbering
// below is this implementation's own consistent resolution (see DESIGN.md,
// "field numbering for nested messages"), distinct from the DataPack/
// DataFrame top-level numbers which are load-bearing and therefore exact.
const (
	fieldDataPackData             = 2
	fieldDataPackPong             = 10
	fieldDataPackSegmentStartedAt = 14
	fieldDataPackCacheEnded       = 15
	fieldDataPackFrames           = 16

	fieldFrameInstantiateObject = 128
	fieldFrameUpdateObject      = 129
	fieldFrameDestroyObject     = 130
	fieldFrameRoom              = 143
	fieldFrameAuthorizeResponse = 144
	fieldFrameJoinRoomResponse  = 147

	fieldObjID       = 1
	fieldOwnerID     = 2
	fieldPrefabName  = 3
	fieldInitData    = 4
	fieldMethod      = 2
	fieldPayload     = 3
	fieldRoomStart   = 2
	fieldRoomEnd     = 3
	fieldPlayerID    = 1
	fieldRole        = 2
	fieldJoinRoom    = 1
	fieldJoinedAt    = 2
	fieldTargetCur   = 10
	fieldTargetRoom  = 11
	fieldTargetPlyID = 12
	fieldTargetRID   = 1 // RoomAll.room_id
	fieldTargetPID   = 1 // PlayerId.player_id
)

// DataPack is the outermost replay/record container: at most one Control
// variant plus zero or more frames.
type DataPack struct {
	Control Control
	Frames  []*DataFrame
}

// Control is DataPack's tagged control variant.
type Control interface {
	isControl()
}

type ControlData struct{ Value bool }
type ControlPong struct{ Value bool }
type ControlSegmentStartedAt struct{ Micros int64 }
type ControlCacheEnded struct{ Value bool }

func (ControlData) isControl()             {}
func (ControlPong) isControl()             {}
func (ControlSegmentStartedAt) isControl() {}
func (ControlCacheEnded) isControl()       {}

// DataFrame is one logical event.
type DataFrame struct {
	Message Message
}

// Message is DataFrame's tagged variant.
type Message interface {
	isMessage()
}

type Room struct {
	ID        []byte
	StartedAt int64
	EndedAt   int64
}

type AuthorizeResponse struct {
	PlayerID []byte
	Role     int32
}

type JoinRoomResponse struct {
	Room     *Room
	JoinedAt int64
}

type InstantiateObject struct {
	ObjectID   int32
	OwnerID    []byte
	PrefabName []byte
	InitData   []byte
	Target     Target
}

type UpdateObject struct {
	ObjectID int32
	Method   int32
	Payload  []byte
	Target   Target
}

type DestroyObject struct {
	ObjectID int32
	Target   Target
}

func (*Room) isMessage()              {}
func (*AuthorizeResponse) isMessage() {}
func (*JoinRoomResponse) isMessage()  {}
func (*InstantiateObject) isMessage() {}
func (*UpdateObject) isMessage()      {}
func (*DestroyObject) isMessage()     {}

// Target is the tagged variant shared by InstantiateObject, UpdateObject and
// DestroyObject.
type Target interface {
	isTarget()
}

type TargetCurrentPlayer struct{}
type TargetRoomAll struct{ RoomID []byte }
type TargetPlayerID struct{ PlayerID []byte }

func (TargetCurrentPlayer) isTarget() {}
func (TargetRoomAll) isTarget()       {}
func (TargetPlayerID) isTarget()      {}

// PacketInfo is the logical packet unit used throughout the pipeline,
// independent of on-disk framing (spec §3 "Packet").
type PacketInfo struct {
	Timestamp time.Time
	DataPack  DataPack
	RawData   []byte // preserved encoded protobuf bytes for digests/replay
}

// Len mirrors the original's packet length accessor: protobuf payload length
// plus the 9-byte standard-framing header (live marker + microsecond
// timestamp).
func (p *PacketInfo) Len() uint16 {
	return uint16(len(p.RawData) + 9)
}
