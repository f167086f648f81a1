package converter

import (
	"log/slog"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/logger"
)

// ProcessPacket feeds one packet through the state machine. Callers drain a
// PacketReader and call this once per packet; Finalize must be called once
// the stream is exhausted.
func (c *Context) ProcessPacket(p *alsproto.PacketInfo) error {
	if c.opts.DataEndTime != nil && p.Timestamp.After(*c.opts.DataEndTime) {
		c.phase = PhaseEnd
		return nil
	}

	if c.opts.AutoTimestamp {
		c.autoBuffer = append(c.autoBuffer, p)
		return c.trackPhaseOnly(p)
	}

	switch c.phase {
	case PhaseInitial:
		return c.processInitial(p)
	case PhaseFirstDataframes, PhaseSplit:
		return c.processFirstDataframes(p)
	case PhaseUpdateObjects, PhasePong:
		return c.processUpdateObjects(p)
	default:
		return nil
	}
}

// trackPhaseOnly advances Room/phase bookkeeping without pushing to the
// builder; in auto-timestamp mode packets are held back until Finalize.
func (c *Context) trackPhaseOnly(p *alsproto.PacketInfo) error {
	switch c.phase {
	case PhaseInitial:
		for _, f := range p.DataPack.Frames {
			if room, ok := f.Message.(*alsproto.Room); ok {
				c.room = room
			}
			if _, ok := f.Message.(*alsproto.JoinRoomResponse); ok {
				c.phase = PhaseFirstDataframes
			}
		}
	}
	return nil
}

func (c *Context) processInitial(p *alsproto.PacketInfo) error {
	for _, f := range p.DataPack.Frames {
		if room, ok := f.Message.(*alsproto.Room); ok {
			c.room = room
		}
		if _, ok := f.Message.(*alsproto.JoinRoomResponse); ok {
			c.phase = PhaseFirstDataframes
		}
		// AuthorizeResponse is ignored.
	}
	return nil
}

func (c *Context) processFirstDataframes(p *alsproto.PacketInfo) error {
	if c.opts.StartTime != nil && !c.startTimeConsumed {
		c.startTimeConsumed = true
		if p.Timestamp.Before(*c.opts.StartTime) {
			return nil
		}
	}

	ctl, isData := p.DataPack.Control.(alsproto.ControlData)
	if !isData || !ctl.Value {
		return nil
	}
	if len(p.DataPack.Frames) == 0 {
		return nil
	}
	if _, ok := p.DataPack.Frames[0].Message.(*alsproto.InstantiateObject); !ok {
		return nil
	}

	c.builder.Start()
	c.initialTS = p.Timestamp
	roomID := c.roomID()

	var rewritten []*alsproto.DataFrame
	for _, f := range p.DataPack.Frames {
		nf := rewriteFrameForRoom(f, roomID)
		rewritten = append(rewritten, nf)
		c.upsertInitialDataframe(flipTargetToCurrentPlayer(nf))
	}

	if !c.opts.AutoTimestamp {
		c.seedSegmentHeader()
	}

	dp := alsproto.DataPack{Control: p.DataPack.Control, Frames: rewritten}
	out := &alsproto.PacketInfo{Timestamp: p.Timestamp, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)}
	if err := c.builder.Add(out); err != nil {
		return err
	}

	c.phase = PhaseUpdateObjects
	return nil
}

func (c *Context) processUpdateObjects(p *alsproto.PacketInfo) error {
	if pong, ok := p.DataPack.Control.(alsproto.ControlPong); ok && pong.Value {
		c.phase = PhasePong
	}

	roomID := c.roomID()
	var kept []*alsproto.DataFrame
	destroyedAny := false

	for _, f := range p.DataPack.Frames {
		switch m := f.Message.(type) {
		case *alsproto.InstantiateObject:
			nf := rewriteFrameForRoom(f, roomID)
			kept = append(kept, nf)
			c.upsertInitialDataframe(flipTargetToCurrentPlayer(nf))
		case *alsproto.UpdateObject:
			nf := rewriteFrameForRoom(f, roomID)
			kept = append(kept, nf)
			if c.findInitialDataframe(m.ObjectID) < 0 {
				logger.Warn("update_object has no matching instantiate in initial dataframes",
					slog.Int("object_id", int(m.ObjectID)))
			}
			c.upsertInitialDataframe(flipTargetToCurrentPlayer(nf))
		case *alsproto.DestroyObject:
			nf := rewriteFrameForRoom(f, roomID)
			kept = append(kept, nf)
			c.removeInitialDataframe(m.ObjectID)
			destroyedAny = true
		default:
			// other frame kinds are dropped per spec §4.G retention rule
		}
	}

	if c.opts.DataStartTime != nil && !c.dataStartTimeUsed {
		if p.Timestamp.Before(*c.opts.DataStartTime) {
			// Still populate initial-dataframes above, but skip admission.
			return c.maybeSplit(destroyedAny)
		}
		c.dataStartTimeUsed = true
		c.initialTS = p.Timestamp
		c.builder.RewriteFirstSegmentHeader(c.initialTS)
	}

	c.rolloverIfNeeded(p.Timestamp)

	dp := alsproto.DataPack{Control: p.DataPack.Control, Frames: kept}
	out := &alsproto.PacketInfo{Timestamp: p.Timestamp, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)}
	if err := c.builder.Add(out); err != nil {
		return err
	}

	return c.maybeSplit(destroyedAny)
}

// maybeSplit closes out the current part when a Split boundary is hit
// (every initial-dataframes entry destroyed, in Split mode): it writes the
// finished part to disk and enters PhaseSplit, so the next
// processFirstDataframes admission starts a fresh part in a new output
// directory (spec §4.G, §6 -split).
func (c *Context) maybeSplit(destroyedAny bool) error {
	if !c.opts.Split || !destroyedAny || len(c.initialDataframes) != 0 {
		return nil
	}
	if err := c.builder.Write(c.roomStartedAt(), c.roomID()); err != nil {
		return err
	}
	c.phase = PhaseSplit
	return nil
}

func (c *Context) roomStartedAt() int64 {
	if c.room == nil {
		return 0
	}
	return c.room.StartedAt
}

func (c *Context) rolloverIfNeeded(ts time.Time) {
	if c.initialTS.IsZero() {
		return
	}
	if ts.Sub(c.initialTS) <= c.opts.SegmentDuration {
		return
	}
	c.initialTS = c.initialTS.Add(c.opts.SegmentDuration)
	c.builder.Next()
	c.seedSegmentHeader()
	c.pushResumeFrames(ts)
}

// seedSegmentHeader admits the synthetic SegmentStartedAt, Room, and
// CacheEnded header packets that open every segment (spec §4.G).
func (c *Context) seedSegmentHeader() {
	micros := c.initialTS.UnixMicro()
	c.admitControlOnly(alsproto.ControlSegmentStartedAt{Micros: micros})
	if c.room != nil {
		dp := alsproto.DataPack{Frames: []*alsproto.DataFrame{{Message: c.room}}}
		c.builder.Add(&alsproto.PacketInfo{Timestamp: c.initialTS, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)})
	}
	c.admitControlOnly(alsproto.ControlCacheEnded{Value: true})
}

func (c *Context) pushResumeFrames(ts time.Time) {
	dp := alsproto.DataPack{Control: alsproto.ControlData{Value: true}, Frames: append([]*alsproto.DataFrame(nil), c.initialDataframes...)}
	c.builder.Add(&alsproto.PacketInfo{Timestamp: ts, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)})
	c.admitControlOnly(alsproto.ControlCacheEnded{Value: true})
}

func (c *Context) admitControlOnly(ctl alsproto.Control) {
	dp := alsproto.DataPack{Control: ctl}
	c.builder.Add(&alsproto.PacketInfo{Timestamp: c.initialTS, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)})
}

func rewriteFrameForRoom(f *alsproto.DataFrame, roomID []byte) *alsproto.DataFrame {
	switch m := f.Message.(type) {
	case *alsproto.InstantiateObject:
		cp := *m
		cp.OwnerID = []byte("sys")
		cp.Target = alsproto.TargetRoomAll{RoomID: roomID}
		return &alsproto.DataFrame{Message: &cp}
	case *alsproto.UpdateObject:
		cp := *m
		cp.Target = alsproto.TargetRoomAll{RoomID: roomID}
		return &alsproto.DataFrame{Message: &cp}
	case *alsproto.DestroyObject:
		cp := *m
		cp.Target = alsproto.TargetRoomAll{RoomID: roomID}
		return &alsproto.DataFrame{Message: &cp}
	default:
		return f
	}
}

// flipTargetToCurrentPlayer returns a copy of f with its target set to
// CurrentPlayer — the form cached in the initial-dataframes resume list
// (spec §4.G).
func flipTargetToCurrentPlayer(f *alsproto.DataFrame) *alsproto.DataFrame {
	switch m := f.Message.(type) {
	case *alsproto.InstantiateObject:
		cp := *m
		cp.Target = alsproto.TargetCurrentPlayer{}
		return &alsproto.DataFrame{Message: &cp}
	case *alsproto.UpdateObject:
		cp := *m
		cp.Target = alsproto.TargetCurrentPlayer{}
		return &alsproto.DataFrame{Message: &cp}
	default:
		return f
	}
}

// Finalize runs auto-timestamp reconstruction (if enabled) and flushes the
// builder to disk (spec §4.G "Finalisation").
func (c *Context) Finalize() error {
	if c.opts.AutoTimestamp {
		logger.Warn("auto-timestamp reconstruction is experimental")
		reconstructed := ReconstructTimestamps(c.autoBuffer)
		c.phase = PhaseFirstDataframes
		for _, p := range reconstructed {
			if err := c.replayThroughBuilder(p); err != nil {
				return err
			}
		}
	}
	return c.builder.Write(c.roomStartedAt(), c.roomID())
}

// replayThroughBuilder drives one reconstructed packet through the normal
// (non-auto-timestamp) state machine path.
func (c *Context) replayThroughBuilder(p *alsproto.PacketInfo) error {
	wasAuto := c.opts.AutoTimestamp
	c.opts.AutoTimestamp = false
	defer func() { c.opts.AutoTimestamp = wasAuto }()

	switch c.phase {
	case PhaseFirstDataframes:
		if _, isData := p.DataPack.Control.(alsproto.ControlData); isData {
			return c.processFirstDataframes(p)
		}
		return c.processUpdateObjects(p)
	default:
		return c.processUpdateObjects(p)
	}
}
