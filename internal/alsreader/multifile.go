package alsreader

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/alsstream/als-pipeline/internal/alsproto"
)

// Factory opens a concrete PacketReader over a file.
type Factory func(f *os.File) PacketReader

// Counters exposes the multi-file reader's progress.
type Counters struct {
	TotalPackets    int
	PerFilePackets  int
	FilesProcessed  int
	FilesRemaining  int
}

// MultiFile streams packets across an ordered queue of files, transparently
// opening the next file when the current one is exhausted or
// MaxPacketsPerFile is reached (spec §4.B).
type MultiFile struct {
	factory  Factory
	entries  []string
	index    int
	cur      *os.File
	curRead  PacketReader

	maxPackets        int
	maxPacketsPerFile int

	counters Counters
}

// Option configures a MultiFile reader.
type Option func(*MultiFile)

func WithMaxPackets(n int) Option        { return func(m *MultiFile) { m.maxPackets = n } }
func WithMaxFiles(n int) Option          { return func(m *MultiFile) { truncateFiles(m, n) } }
func WithMaxPacketsPerFile(n int) Option { return func(m *MultiFile) { m.maxPacketsPerFile = n } }

func truncateFiles(m *MultiFile, n int) {
	if n > 0 && n < len(m.entries) {
		m.entries = m.entries[:n]
	}
}

// NewMultiFile builds a reader over entries (already ordered) using factory
// to open each file. MaxFiles truncates entries at construction time, so it
// must be passed as an option after entries are known.
func NewMultiFile(entries []string, factory Factory, opts ...Option) *MultiFile {
	m := &MultiFile{
		factory: factory,
		entries: append([]string(nil), entries...),
	}
	for _, o := range opts {
		o(m)
	}
	m.counters.FilesRemaining = len(m.entries)
	return m
}

func (m *MultiFile) ReadPacket() (*alsproto.PacketInfo, error) {
	if m.maxPackets > 0 && m.counters.TotalPackets >= m.maxPackets {
		return nil, io.EOF
	}
	for {
		if m.curRead == nil {
			if !m.openNext() {
				return nil, io.EOF
			}
		}
		p, err := m.curRead.ReadPacket()
		if err == io.EOF {
			m.closeCurrent()
			continue
		}
		if err != nil {
			return nil, err
		}
		m.counters.TotalPackets++
		m.counters.PerFilePackets++
		if m.maxPacketsPerFile > 0 && m.counters.PerFilePackets >= m.maxPacketsPerFile {
			m.closeCurrent()
		}
		return p, nil
	}
}

func (m *MultiFile) openNext() bool {
	if m.index >= len(m.entries) {
		return false
	}
	path := m.entries[m.index]
	m.index++
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	m.cur = f
	m.curRead = m.factory(f)
	m.counters.PerFilePackets = 0
	m.counters.FilesRemaining = len(m.entries) - m.index
	return true
}

func (m *MultiFile) closeCurrent() {
	if m.cur != nil {
		m.cur.Close()
		m.cur = nil
	}
	m.curRead = nil
	m.counters.FilesProcessed++
}

func (m *MultiFile) Counters() Counters { return m.counters }

var numericSuffix = regexp.MustCompile(`_(\d+)\.bin$`)

// OrderDirectory lists the files directly under dir, sorted by the numeric
// suffix extracted from "*_N.bin" names. Files without that suffix sort
// after all numbered ones, ordered by modification time.
func OrderDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type item struct {
		path    string
		numeric bool
		num     int
		modTime int64
	}
	items := make([]item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		it := item{path: path}
		if m := numericSuffix.FindStringSubmatch(e.Name()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				it.numeric = true
				it.num = n
			}
		}
		if !it.numeric {
			if info, err := e.Info(); err == nil {
				it.modTime = info.ModTime().UnixNano()
			}
		}
		items = append(items, it)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.numeric != b.numeric {
			return a.numeric
		}
		if a.numeric {
			return a.num < b.num
		}
		return a.modTime < b.modTime
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.path
	}
	return out, nil
}
