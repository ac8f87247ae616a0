package upload

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func candidate(name string, size int64) FileCandidate {
	return FileCandidate{
		Name:      name,
		SizeBytes: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(name)), nil
		},
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		file    FileCandidate
		limits  Limits
		wantErr error
		wantMsg string
	}{
		{"ok", candidate("a.jpg", 1024), PhotoLimits(), nil, ""},
		{"name at limit", candidate(strings.Repeat("a", 60)+".jpg", 1), PhotoLimits(), nil, ""},
		{"name over limit", candidate(strings.Repeat("a", 66)+".jpg", 1), PhotoLimits(), ErrNameTooLong, "File name exceeds 64 characters."},
		{"size at limit", candidate("a.jpg", PhotoMaxSizeBytes), PhotoLimits(), nil, ""},
		{"photo too large", candidate("a.jpg", PhotoMaxSizeBytes+1), PhotoLimits(), ErrSizeTooLarge, "File size exceeds 2 MB."},
		{"document too large", candidate("a.md", 600*1024), DocumentLimits(), ErrSizeTooLarge, "File size exceeds 500 KB."},
		{"name checked first", candidate(strings.Repeat("b", 70), PhotoMaxSizeBytes*2), PhotoLimits(), ErrNameTooLong, "File name exceeds 64 characters."},
		{"unlabelled limit", candidate("a.bin", 11), Limits{MaxSizeBytes: 10, MaxNameLength: 64}, ErrSizeTooLarge, "File size exceeds 10 bytes."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.file, tt.limits)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err.Error() != tt.wantMsg {
				t.Fatalf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCheck_NameLengthCountsUTF16Units(t *testing.T) {
	if err := Check(candidate(strings.Repeat("é", 64), 1), PhotoLimits()); err != nil {
		t.Fatalf("64 basic-plane characters must pass: %v", err)
	}

	if err := Check(candidate(strings.Repeat("😀", 32), 1), PhotoLimits()); err != nil {
		t.Fatalf("32 emoji are 64 code units and must pass: %v", err)
	}
	err := Check(candidate(strings.Repeat("😀", 40), 1), PhotoLimits())
	if !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("40 emoji are 80 code units, expected ErrNameTooLong, got %v", err)
	}
}

func TestCheckAll_OneErrorPerInvalidCandidate(t *testing.T) {
	errs := CheckAll([]FileCandidate{
		candidate("one.jpg", 1),
		candidate("two.jpg", 3<<20),
		candidate(strings.Repeat("c", 65), 1),
	}, PhotoLimits())

	got := make([]string, 0, len(errs))
	for _, err := range errs {
		got = append(got, batchMessage(err))
	}
	want := []string{
		"File size exceeds 2 MB: two.jpg",
		"File name exceeds 64 characters: " + strings.Repeat("c", 65),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestCandidateFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("# hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := CandidateFromPath(path)
	if err != nil {
		t.Fatalf("CandidateFromPath: %v", err)
	}
	if c.Name != "note.md" || c.SizeBytes != 7 {
		t.Fatalf("unexpected candidate %+v", c)
	}
	rc, err := c.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "# hello" {
		t.Fatalf("unexpected content %q", data)
	}

	if _, err := CandidateFromPath(dir); err == nil {
		t.Fatalf("expected directory error")
	}
	if _, err := CandidateFromPath(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected stat error")
	}
}
