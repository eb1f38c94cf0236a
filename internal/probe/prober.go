package probe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// stopTag is (0010,0021) IssuerOfPatientID, the element that directly follows
// PatientID in the patient module. Reading stops once an element at or past
// it has been consumed.
var stopTag = tag.IssuerOfPatientID

// readBufferSize is sized to cover a typical meta group and patient module in
// one read.
const readBufferSize = 16 * 1024

// Part-10 files start with a 128-byte preamble followed by "DICM".
const preambleLen = 128

var magic = []byte("DICM")

// Probe reads just enough of the file at path to extract PatientName and
// PatientID. Pixel data is skipped and parsing stops at the first top-level
// element that sorts after PatientID.
func Probe(path string) (Record, error) {
	return decode(path, &stopTag, dicom.SkipPixelData())
}

// ProbeFull decodes the entire file at path, bulk data included, and extracts
// the same fields as [Probe]. Pixel values are read but not unpacked into
// frames.
func ProbeFull(path string) (Record, error) {
	return decode(path, nil, dicom.SkipProcessingPixelDataValue())
}

// decode parses top-level elements of the file at path until the data set
// ends or, with stop set, an element at or past stop has been consumed. A
// read error anywhere, including a short final element, is an
// invalid-container failure.
func decode(path string, stop *tag.Tag, opts ...dicom.ParseOption) (rec Record, err error) {
	f, br, size, err := open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()
	defer recoverParse(path, &rec, &err)

	if err := checkLengths(f, size, stop); err != nil {
		return Record{}, &Error{Kind: KindInvalidContainer, Path: path, Err: err}
	}

	p, err := dicom.NewParser(br, size, nil, opts...)
	if err != nil {
		return Record{}, &Error{Kind: KindInvalidContainer, Path: path, Err: err}
	}

	var name, id *dicom.Element
	for {
		elem, err := p.Next()
		if errors.Is(err, dicom.ErrorEndOfDICOM) {
			break
		}
		if err != nil {
			return Record{}, &Error{Kind: KindInvalidContainer, Path: path, Err: err}
		}
		switch elem.Tag {
		case tag.PatientName:
			name = elem
		case tag.PatientID:
			id = elem
		}
		if stop != nil && !tagLess(elem.Tag, *stop) {
			break
		}
	}
	return buildRecord(path, name, id)
}

// open returns the file, a buffered reader positioned at its start and its
// size. Files without the Part-10 preamble are rejected here; the parser
// would otherwise try to read them as raw data sets.
func open(path string) (*os.File, *bufio.Reader, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, &Error{Kind: KindOpen, Path: path, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, 0, &Error{Kind: KindOpen, Path: path, Err: err}
	}
	br := bufio.NewReaderSize(f, readBufferSize)
	head, err := br.Peek(preambleLen + len(magic))
	if err != nil {
		f.Close()
		return nil, nil, 0, &Error{Kind: KindInvalidContainer, Path: path, Err: fmt.Errorf("read preamble: %w", err)}
	}
	if !bytes.Equal(head[preambleLen:], magic) {
		f.Close()
		return nil, nil, 0, &Error{Kind: KindInvalidContainer, Path: path, Err: errors.New("missing DICM prefix")}
	}
	return f, br, fi.Size(), nil
}

// recoverParse turns a panic inside the DICOM parser into an invalid-container
// error so one malformed file cannot take down the run.
func recoverParse(path string, rec *Record, err *error) {
	if r := recover(); r != nil {
		*rec = Record{}
		*err = &Error{Kind: KindInvalidContainer, Path: path, Err: fmt.Errorf("parser panic: %v", r)}
	}
}

func buildRecord(path string, name, id *dicom.Element) (Record, error) {
	patientName, err := fieldText(path, tag.PatientName, name)
	if err != nil {
		return Record{}, err
	}
	patientID, err := fieldText(path, tag.PatientID, id)
	if err != nil {
		return Record{}, err
	}
	if !utf8.ValidString(path) {
		return Record{}, &Error{Kind: KindPathNotText, Path: path}
	}
	return Record{FilePath: path, PatientName: patientName, PatientID: patientID}, nil
}

// fieldText returns the element's string value. Multi-valued elements are
// joined with the DICOM value separator.
func fieldText(path string, t tag.Tag, e *dicom.Element) (string, error) {
	if e == nil {
		return "", &Error{Kind: KindMissingField, Path: path, Tag: t}
	}
	if e.Value == nil || e.Value.ValueType() != dicom.Strings {
		return "", &Error{Kind: KindNotText, Path: path, Tag: t}
	}
	vals, ok := e.Value.GetValue().([]string)
	if !ok {
		return "", &Error{Kind: KindNotText, Path: path, Tag: t}
	}
	s := strings.Join(vals, `\`)
	if !utf8.ValidString(s) {
		return "", &Error{Kind: KindNotText, Path: path, Tag: t}
	}
	return s, nil
}

func tagLess(a, b tag.Tag) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Element < b.Element
}
