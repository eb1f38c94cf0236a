// Package probe decodes the patient header of DICOM Part-10 files.
//
// [Probe] is the production path: it parses the file meta group and then
// reads top-level data elements one at a time, stopping as soon as it has
// consumed an element that sorts after (0010,0020) PatientID. Pixel data and
// any bulk payload that follows the patient module are never read.
// [ProbeFull] decodes the whole file and exists for comparison and for
// --full-decode runs; both return identical field values for valid input.
//
// Before decoding, both walk the element headers they are about to read and
// reject any value length that runs past the end of the file, since the
// decoder allocates declared lengths up front.
//
// Every failure is an [*Error] whose [Kind] tells callers why the file was
// rejected. Callers skip the file either way.
package probe
