package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf16"
)

const (
	// DefaultMaxNameLength is the file name ceiling shared by every slot.
	DefaultMaxNameLength = 64
	// PhotoMaxSizeBytes caps image-like slots at 2 MiB.
	PhotoMaxSizeBytes int64 = 2 * 1024 * 1024
	// DocumentMaxSizeBytes caps the markdown body slot at 512 KiB.
	DocumentMaxSizeBytes int64 = 512 * 1024
)

var (
	// ErrNameTooLong reports a candidate whose name exceeds the slot ceiling.
	ErrNameTooLong = errors.New("upload: file name too long")
	// ErrSizeTooLarge reports a candidate whose size exceeds the slot ceiling.
	ErrSizeTooLarge = errors.New("upload: file size too large")
)

// Limits describes the ceilings a slot enforces. SizeLabel is the human
// readable form of MaxSizeBytes used in messages ("2 MB", "500 KB").
type Limits struct {
	MaxSizeBytes  int64  `json:"max_size_bytes" yaml:"max_size_bytes"`
	MaxNameLength int    `json:"max_name_length" yaml:"max_name_length"`
	SizeLabel     string `json:"size_label,omitempty" yaml:"size_label,omitempty"`
}

// PhotoLimits returns the limits used by profile, hero and gallery slots.
func PhotoLimits() Limits {
	return Limits{
		MaxSizeBytes:  PhotoMaxSizeBytes,
		MaxNameLength: DefaultMaxNameLength,
		SizeLabel:     "2 MB",
	}
}

// DocumentLimits returns the limits used by the markdown body slot.
func DocumentLimits() Limits {
	return Limits{
		MaxSizeBytes:  DocumentMaxSizeBytes,
		MaxNameLength: DefaultMaxNameLength,
		SizeLabel:     "500 KB",
	}
}

func (l Limits) sizeLabel() string {
	if l.SizeLabel != "" {
		return l.SizeLabel
	}
	return fmt.Sprintf("%d bytes", l.MaxSizeBytes)
}

// FileCandidate is a file picked by the user. Open is only needed when the
// candidate is committed; the guard looks at Name and SizeBytes alone.
type FileCandidate struct {
	Name      string
	SizeBytes int64
	Open      func() (io.ReadCloser, error)
}

// CandidateFromPath stats a local file and returns a candidate that opens it
// lazily.
func CandidateFromPath(path string) (FileCandidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileCandidate{}, fmt.Errorf("upload: stat %q: %w", path, err)
	}
	if info.IsDir() {
		return FileCandidate{}, fmt.Errorf("upload: %q is a directory", path)
	}
	return FileCandidate{
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// RejectionError is returned by Check when a candidate fails a rule. Message
// is what the slot shows next to the file control.
type RejectionError struct {
	Name    string
	Reason  error
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// Check applies the slot rules in order and returns the first failure, or nil
// when the candidate is acceptable.
func Check(candidate FileCandidate, limits Limits) error {
	if nameLength(candidate.Name) > limits.MaxNameLength {
		return &RejectionError{
			Name:    candidate.Name,
			Reason:  ErrNameTooLong,
			Message: fmt.Sprintf("File name exceeds %d characters.", limits.MaxNameLength),
		}
	}
	if candidate.SizeBytes > limits.MaxSizeBytes {
		return &RejectionError{
			Name:    candidate.Name,
			Reason:  ErrSizeTooLarge,
			Message: fmt.Sprintf("File size exceeds %s.", limits.sizeLabel()),
		}
	}
	return nil
}

// nameLength counts UTF-16 code units, the length a browser reports for a
// file name. Characters outside the basic plane count twice.
func nameLength(name string) int {
	n := 0
	for _, r := range name {
		if size := utf16.RuneLen(r); size > 0 {
			n += size
		} else {
			n++
		}
	}
	return n
}

// CheckAll evaluates every candidate. The result holds one error per invalid
// candidate, in selection order; an empty result means the whole selection is
// acceptable.
func CheckAll(candidates []FileCandidate, limits Limits) []error {
	var errs []error
	for _, candidate := range candidates {
		if err := Check(candidate, limits); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// batchMessage renders a rejection the way multi-file slots list them.
func batchMessage(err error) string {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return fmt.Sprintf("%s: %s", trimPeriod(rejection.Message), rejection.Name)
	}
	return err.Error()
}

func trimPeriod(msg string) string {
	if n := len(msg); n > 0 && msg[n-1] == '.' {
		return msg[:n-1]
	}
	return msg
}
