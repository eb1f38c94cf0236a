// Package probetest encodes minimal DICOM Part-10 files (Explicit VR Little
// Endian) for tests of the probe and pipeline packages.
package probetest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const (
	explicitVRLittleEndian = "1.2.840.10008.1.2.1"
	secondaryCaptureSOP    = "1.2.840.10008.5.1.4.1.1.7"
	instanceUID            = "1.2.826.0.1.3680043.8.498.1"
)

// Element is one data element to encode. Value is padded to even length.
type Element struct {
	Group   uint16
	Element uint16
	VR      string
	Value   []byte
}

// Text returns a string-valued element.
func Text(group, element uint16, vr, s string) Element {
	return Element{Group: group, Element: element, VR: vr, Value: []byte(s)}
}

// Raw returns an element with an arbitrary byte value.
func Raw(group, element uint16, vr string, b []byte) Element {
	return Element{Group: group, Element: element, VR: vr, Value: b}
}

// PatientName and PatientID build the two harvested elements.
func PatientName(s string) Element { return Text(0x0010, 0x0010, "PN", s) }
func PatientID(s string) Element   { return Text(0x0010, 0x0020, "LO", s) }

// Encode returns a complete Part-10 file: preamble, "DICM", the file meta
// group and elems in the order given.
func Encode(elems ...Element) []byte {
	var meta bytes.Buffer
	for _, e := range []Element{
		Raw(0x0002, 0x0001, "OB", []byte{0x00, 0x01}),
		Text(0x0002, 0x0002, "UI", secondaryCaptureSOP),
		Text(0x0002, 0x0003, "UI", instanceUID),
		Text(0x0002, 0x0010, "UI", explicitVRLittleEndian),
	} {
		writeElement(&meta, e)
	}

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")
	groupLen := make([]byte, 4)
	binary.LittleEndian.PutUint32(groupLen, uint32(meta.Len()))
	writeElement(&out, Raw(0x0002, 0x0000, "UL", groupLen))
	out.Write(meta.Bytes())
	for _, e := range elems {
		writeElement(&out, e)
	}
	return out.Bytes()
}

// Patient returns a file with the usual SOP and patient-module elements
// followed by a 2 KiB bulk payload, the shape of a typical scanner export.
func Patient(name, id string) []byte {
	return Encode(
		Text(0x0008, 0x0016, "UI", secondaryCaptureSOP),
		Text(0x0008, 0x0018, "UI", instanceUID),
		Text(0x0008, 0x0060, "CS", "OT"),
		PatientName(name),
		PatientID(id),
		Text(0x0010, 0x0030, "DA", "19700101"),
		Text(0x0010, 0x0040, "CS", "O "),
		Raw(0x0042, 0x0011, "OB", make([]byte, 2048)),
	)
}

// Write stores data as dir/name and returns the full path.
func Write(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// longLengthVRs use a reserved 2-byte field and a 32-bit length.
var longLengthVRs = map[string]bool{
	"OB": true, "OD": true, "OF": true, "OL": true, "OV": true, "OW": true,
	"SQ": true, "SV": true, "UC": true, "UN": true, "UR": true, "UT": true, "UV": true,
}

func writeElement(buf *bytes.Buffer, e Element) {
	val := e.Value
	if len(val)%2 != 0 {
		pad := byte(' ')
		if e.VR == "UI" || longLengthVRs[e.VR] {
			pad = 0x00
		}
		val = append(append([]byte{}, val...), pad)
	}
	_ = binary.Write(buf, binary.LittleEndian, e.Group)
	_ = binary.Write(buf, binary.LittleEndian, e.Element)
	buf.WriteString(e.VR)
	if longLengthVRs[e.VR] {
		buf.Write([]byte{0, 0})
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(val)))
	} else {
		_ = binary.Write(buf, binary.LittleEndian, uint16(len(val)))
	}
	buf.Write(val)
}

// Header returns an explicit VR little-endian element header declaring vl
// value bytes, with no value following. Short-form VRs keep the low 16 bits.
func Header(group, element uint16, vr string, vl uint32) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, group)
	_ = binary.Write(&buf, binary.LittleEndian, element)
	buf.WriteString(vr)
	if longLengthVRs[vr] {
		buf.Write([]byte{0, 0})
		_ = binary.Write(&buf, binary.LittleEndian, vl)
	} else {
		_ = binary.Write(&buf, binary.LittleEndian, uint16(vl))
	}
	return buf.Bytes()
}

// ItemHeader returns an item-group header (FFFE,element) declaring vl bytes.
// Item headers carry no VR in any transfer syntax.
func ItemHeader(element uint16, vl uint32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint16(b, 0xFFFE)
	binary.LittleEndian.PutUint16(b[2:], element)
	binary.LittleEndian.PutUint32(b[4:], vl)
	return b
}
