package probe

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/suyashkumar/dicom/pkg/uid"
)

// The decoder allocates a value's full declared length before reading it, so
// a few bytes of header can ask for gigabytes. checkLengths walks the element
// headers the same way the decoder will and rejects any declared length that
// runs past the end of the file, before the decoder sees it.

// Explicit VRs with a reserved 2-byte field and a 32-bit length, as the
// decoder reads them.
var longLengthVRs = map[string]bool{
	"NA": true, "OB": true, "OD": true, "OF": true, "OL": true, "OW": true,
	"SQ": true, "UN": true, "UC": true, "UR": true, "UT": true,
}

// Container markers on the open stack; non-negative entries are end offsets.
const (
	openUndefined    int64 = -1 // closed by a delimitation item
	openEncapsulated int64 = -2 // pixel data fragments, closed by a sequence delimiter
)

type header struct {
	tag tag.Tag
	vr  string
	vl  uint32
}

type lengthScanner struct {
	r        io.ReaderAt
	size     int64
	pos      int64
	bo       binary.ByteOrder
	implicit bool
	syntax   string
	buf      [8]byte
}

// checkLengths scans r, a Part-10 file of size bytes whose preamble has
// already been verified. With stop set the scan ends after the first
// top-level element at or past stop, matching the bounded read; otherwise the
// whole data set is scanned. Headers that cannot be read end the scan without
// error: the decoder reports those itself.
func checkLengths(r io.ReaderAt, size int64, stop *tag.Tag) error {
	s := &lengthScanner{
		r:    r,
		size: size,
		pos:  preambleLen + int64(len(magic)),
		bo:   binary.LittleEndian,
	}

	// File meta group: Explicit VR Little Endian, sized by its group length.
	h, ok := s.next()
	if !ok {
		return nil
	}
	if !s.fits(h.vl) {
		return lengthError(h, s.left())
	}
	if h.tag != tag.FileMetaInformationGroupLength || h.vr != "UL" || h.vl != 4 {
		return nil
	}
	b, ok := s.read(4)
	if !ok {
		return nil
	}
	metaEnd := s.pos + int64(binary.LittleEndian.Uint32(b))
	if metaEnd > size {
		return nil
	}
	if err := s.walk(metaEnd, nil); err != nil {
		return err
	}
	s.pos = metaEnd

	s.bo, s.implicit = binary.LittleEndian, true
	if s.syntax != "" {
		// An unknown syntax leaves the decoder on Explicit VR Big Endian.
		s.bo, s.implicit, _ = uid.ParseTransferSyntaxUID(s.syntax)
	}
	return s.walk(size, stop)
}

// walk scans elements until end, descending into sequences and items.
func (s *lengthScanner) walk(end int64, stop *tag.Tag) error {
	var open []int64
	stopping := false
	for {
		for len(open) > 0 && open[len(open)-1] >= 0 && s.pos >= open[len(open)-1] {
			open = open[:len(open)-1]
		}
		if (stopping && len(open) == 0) || s.pos >= end {
			return nil
		}
		h, ok := s.next()
		if !ok {
			return nil
		}

		if len(open) > 0 && open[len(open)-1] == openEncapsulated {
			switch {
			case h.tag == tag.SequenceDelimitationItem:
				open = open[:len(open)-1]
			case h.tag == tag.Item && h.vl != tag.VLUndefinedLength:
				if !s.fits(h.vl) {
					return lengthError(h, s.left())
				}
				s.pos += int64(h.vl)
			}
			continue
		}

		if stop != nil && len(open) == 0 && !tagLess(h.tag, *stop) {
			stopping = true
		}

		switch kind := tag.GetVRKind(h.tag, h.vr); {
		case kind == tag.VRSequence || kind == tag.VRItem:
			if h.vl == tag.VLUndefinedLength {
				open = append(open, openUndefined)
				continue
			}
			if !s.fits(h.vl) {
				return lengthError(h, s.left())
			}
			open = append(open, s.pos+int64(h.vl))
		case kind == tag.VRPixelData && h.vl == tag.VLUndefinedLength:
			open = append(open, openEncapsulated)
		default:
			if !s.fits(h.vl) {
				return lengthError(h, s.left())
			}
			if h.tag == tag.ItemDelimitationItem || h.tag == tag.SequenceDelimitationItem {
				if len(open) > 0 && open[len(open)-1] == openUndefined {
					open = open[:len(open)-1]
				}
			}
			if h.tag == tag.TransferSyntaxUID {
				s.readSyntax(h.vl)
			}
			s.pos += int64(h.vl)
		}
	}
}

// next reads one element header. Item tags are always implicit.
func (s *lengthScanner) next() (header, bool) {
	b, ok := s.read(4)
	if !ok {
		return header{}, false
	}
	h := header{tag: tag.Tag{Group: s.bo.Uint16(b), Element: s.bo.Uint16(b[2:])}}

	if s.implicit || h.tag == tag.Item {
		h.vr = tag.UnknownVR
		if info, err := tag.Find(h.tag); err == nil {
			h.vr = info.VR
		}
		if b, ok = s.read(4); !ok {
			return header{}, false
		}
		h.vl = s.bo.Uint32(b)
		return h, true
	}

	if b, ok = s.read(2); !ok {
		return header{}, false
	}
	h.vr = string(b)
	if longLengthVRs[h.vr] {
		if b, ok = s.read(6); !ok {
			return header{}, false
		}
		h.vl = s.bo.Uint32(b[2:])
		return h, true
	}
	if b, ok = s.read(2); !ok {
		return header{}, false
	}
	h.vl = uint32(s.bo.Uint16(b))
	if h.vl == 0xffff {
		h.vl = tag.VLUndefinedLength
	}
	return h, true
}

func (s *lengthScanner) read(n int) ([]byte, bool) {
	if s.left() < int64(n) {
		return nil, false
	}
	b := s.buf[:n]
	if _, err := s.r.ReadAt(b, s.pos); err != nil {
		return nil, false
	}
	s.pos += int64(n)
	return b, true
}

// readSyntax records the transfer syntax UID without moving pos.
func (s *lengthScanner) readSyntax(vl uint32) {
	if vl == 0 || vl > 256 {
		return
	}
	b := make([]byte, vl)
	if _, err := s.r.ReadAt(b, s.pos); err != nil {
		return
	}
	v := strings.Trim(string(b), " \x00")
	s.syntax, _, _ = strings.Cut(v, `\`)
}

func (s *lengthScanner) left() int64 { return s.size - s.pos }

func (s *lengthScanner) fits(vl uint32) bool {
	return vl != tag.VLUndefinedLength && int64(vl) <= s.left()
}

func lengthError(h header, left int64) error {
	return fmt.Errorf("element %s declares %d bytes, %d left in file", h.tag, h.vl, left)
}
