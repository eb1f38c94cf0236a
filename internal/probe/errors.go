package probe

import (
	"errors"
	"fmt"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Kind classifies why a file could not be turned into a [Record].
type Kind int

const (
	KindUnknown          Kind = iota
	KindOpen                  // File could not be opened or stat'd.
	KindInvalidContainer      // Not a parseable DICOM Part-10 file.
	KindMissingField          // PatientName or PatientID absent.
	KindNotText               // A required element does not hold valid text.
	KindPathNotText           // The file path is not valid UTF-8.
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindOpen:             "open",
	KindInvalidContainer: "invalid-container",
	KindMissingField:     "missing-field",
	KindNotText:          "not-text",
	KindPathNotText:      "path-not-text",
}

// String returns the short, label-safe name of k (e.g. "missing-field").
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Kinds lists every decode failure kind, in declaration order.
func Kinds() []Kind {
	return []Kind{KindOpen, KindInvalidContainer, KindMissingField, KindNotText, KindPathNotText}
}

// Error is returned by [Probe] and [ProbeFull]. The message omits Path so
// callers can prefix it once in their own log line.
type Error struct {
	Kind Kind
	Path string
	Tag  tag.Tag // Set for KindMissingField and KindNotText.
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindOpen:
		return fmt.Sprintf("open: %v", e.Err)
	case KindInvalidContainer:
		return fmt.Sprintf("not a valid DICOM file: %v", e.Err)
	case KindMissingField:
		return fmt.Sprintf("missing required element %s %s", tagName(e.Tag), e.Tag)
	case KindNotText:
		return fmt.Sprintf("element %s %s is not text", tagName(e.Tag), e.Tag)
	case KindPathNotText:
		return "path is not valid UTF-8"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown decode failure"
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

func tagName(t tag.Tag) string {
	switch t {
	case tag.PatientName:
		return "PatientName"
	case tag.PatientID:
		return "PatientID"
	}
	return "element"
}
