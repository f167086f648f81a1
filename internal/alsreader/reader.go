// Package alsreader implements the three on-disk packet framings (standard,
// mixed, legacy) behind one shared interface, plus a multi-file buffered
// reader that streams packets across file boundaries transparently (spec
// §4.B).
package alsreader

import (
	"bufio"
	"io"

	"github.com/alsstream/als-pipeline/internal/alsproto"
)

// PacketReader is implemented by all three concrete framings.
type PacketReader interface {
	// ReadPacket returns the next packet, or io.EOF at a clean stream
	// boundary. Any other error is an *alserrors.CodecError naming the
	// file offset and context.
	ReadPacket() (*alsproto.PacketInfo, error)
}

// ReadPackets drains up to n packets (n<=0 means unbounded) from r.
func ReadPackets(r PacketReader, n int) ([]*alsproto.PacketInfo, error) {
	var out []*alsproto.PacketInfo
	for n <= 0 || len(out) < n {
		p, err := r.ReadPacket()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Iterator adapts a PacketReader to a pull-one-at-a-time callback style,
// mirroring the trait-level iterator adapter the wire format historically
// exposed.
type Iterator struct {
	r   PacketReader
	err error
}

func NewIterator(r PacketReader) *Iterator { return &Iterator{r: r} }

// Next returns the next packet, or nil once the stream is exhausted or a
// read error has been recorded. Callers must check Err after Next returns
// nil.
func (it *Iterator) Next() *alsproto.PacketInfo {
	if it.err != nil {
		return nil
	}
	p, err := it.r.ReadPacket()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		it.err = err
		return nil
	}
	return p
}

func (it *Iterator) Err() error { return it.err }

func newBuffered(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 64*1024)
}
