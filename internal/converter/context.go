// Package converter implements the replay converter state machine:
// Initial -> FirstDataframes -> UpdateObjects <-> Pong, with Split and End
// (spec §4.G), plus the auto-timestamp reconstruction pass (§4.H).
package converter

import (
	"bytes"
	"sort"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/segment"
)

// Phase is the converter's state machine position.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseFirstDataframes
	PhaseUpdateObjects
	PhasePong
	PhaseSplit
	PhaseEnd
)

const segmentDuration = 10 * time.Second

// Options configures one conversion run (spec §6, converter CLI knobs).
type Options struct {
	ConvertType     string // "als" or "als-legacy"
	SegmentDuration time.Duration
	TimeshiftMS     int64
	Split           bool
	StartTime       *time.Time
	DataStartTime   *time.Time
	DataEndTime     *time.Time
	MetadataPath    string
	AutoTimestamp   bool
}

func (o *Options) applyDefaults() {
	if o.SegmentDuration == 0 {
		o.SegmentDuration = segmentDuration
	}
}

// Context carries conversion state across the packet stream.
type Context struct {
	opts Options

	phase Phase

	room            *alsproto.Room
	initialTS       time.Time
	initialDataframes []*alsproto.DataFrame

	startTimeConsumed   bool
	dataStartTimeUsed   bool

	builder *segment.Builder

	autoBuffer []*alsproto.PacketInfo
}

// New builds a Context targeting outputDir. opts.Split with opts.AutoTimestamp
// together is rejected (spec §9: undefined behaviour) at construction.
func New(outputDir string, opts Options) (*Context, error) {
	opts.applyDefaults()
	if opts.Split && opts.AutoTimestamp {
		return nil, errSplitWithAutoTimestamp()
	}
	b := segment.NewBuilder(outputDir)
	b.MetadataPath = opts.MetadataPath
	b.TimeshiftMS = opts.TimeshiftMS
	return &Context{opts: opts, builder: b}, nil
}

func (c *Context) Phase() Phase { return c.phase }

// roomID returns the active room's id, or nil if none has been seen
// yet (Initial phase packets never need it).
func (c *Context) roomID() []byte {
	if c.room == nil {
		return nil
	}
	return c.room.ID
}

// findInitialDataframe returns the index of the initial-dataframes entry
// for objectID, or -1.
func (c *Context) findInitialDataframe(objectID int32) int {
	for i, f := range c.initialDataframes {
		if id, ok := frameObjectID(f); ok && id == objectID {
			return i
		}
	}
	return -1
}

func frameObjectID(f *alsproto.DataFrame) (int32, bool) {
	switch m := f.Message.(type) {
	case *alsproto.InstantiateObject:
		return m.ObjectID, true
	case *alsproto.UpdateObject:
		return m.ObjectID, true
	case *alsproto.DestroyObject:
		return m.ObjectID, true
	}
	return 0, false
}

// upsertInitialDataframe inserts or replaces the entry matching the frame's
// object_id and kind (an UpdateObject only replaces a prior UpdateObject for
// that object_id; it never displaces the InstantiateObject entry), then
// re-sorts to satisfy the camera-order and instantiate-first invariants
// (spec §3).
func (c *Context) upsertInitialDataframe(f *alsproto.DataFrame) {
	if idx := c.findInitialDataframeMatch(f); idx >= 0 {
		c.initialDataframes[idx] = f
	} else {
		c.initialDataframes = append(c.initialDataframes, f)
	}
	c.sortInitialDataframes()
}

// findInitialDataframeMatch locates the existing entry f should replace:
// same object_id and the same Update-vs-Instantiate kind.
func (c *Context) findInitialDataframeMatch(f *alsproto.DataFrame) int {
	id, ok := frameObjectID(f)
	if !ok {
		return -1
	}
	wantUpdate := isUpdateFrame(f)
	for i, existing := range c.initialDataframes {
		eid, eok := frameObjectID(existing)
		if eok && eid == id && isUpdateFrame(existing) == wantUpdate {
			return i
		}
	}
	return -1
}

func isUpdateFrame(f *alsproto.DataFrame) bool {
	_, ok := f.Message.(*alsproto.UpdateObject)
	return ok
}

// removeInitialDataframe deletes every entry matching object_id.
func (c *Context) removeInitialDataframe(objectID int32) {
	out := c.initialDataframes[:0]
	for _, f := range c.initialDataframes {
		if id, ok := frameObjectID(f); ok && id == objectID {
			continue
		}
		out = append(out, f)
	}
	c.initialDataframes = out
}

// sortInitialDataframes enforces InstantiateObject before UpdateObject via a
// stable sort (insertion order is otherwise preserved within each group),
// then applies the camera swap (spec §3).
func (c *Context) sortInitialDataframes() {
	sort.SliceStable(c.initialDataframes, func(i, j int) bool {
		a, b := c.initialDataframes[i], c.initialDataframes[j]
		return dataframeRank(a) < dataframeRank(b)
	})
	c.swapCameraOrder()
}

const (
	rankInstantiate = iota
	rankUpdate
	rankOther
)

func dataframeRank(f *alsproto.DataFrame) int {
	switch f.Message.(type) {
	case *alsproto.InstantiateObject:
		return rankInstantiate
	case *alsproto.UpdateObject:
		return rankUpdate
	default:
		return rankOther
	}
}

// swapCameraOrder swaps Camera/FixedCamera and Camera/Cameraman into
// FixedCamera-before-Cameraman order when both are present among the
// InstantiateObject entries, leaving every other entry's position alone.
// Matches swap_order, not a general rank sort over all instantiates.
func (c *Context) swapCameraOrder() {
	fixedIdx, camIdx := -1, -1
	for i, f := range c.initialDataframes {
		inst, ok := f.Message.(*alsproto.InstantiateObject)
		if !ok {
			continue
		}
		if bytes.Contains(inst.PrefabName, []byte("Camera/FixedCamera")) {
			fixedIdx = i
		} else if bytes.Contains(inst.PrefabName, []byte("Camera/Cameraman")) {
			camIdx = i
		}
	}
	if fixedIdx >= 0 && camIdx >= 0 && camIdx < fixedIdx {
		c.initialDataframes[fixedIdx], c.initialDataframes[camIdx] = c.initialDataframes[camIdx], c.initialDataframes[fixedIdx]
	}
}
