package checksum_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/ftpdeploy/pkg/checksum"
)

func TestFile_EmptyFileMatchesEmptyStringDigest(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(p, nil, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := checksum.File(p, 16)
	if err != nil {
		t.Fatal(err)
	}

	const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != emptySHA256 {
		t.Fatalf("got %s want %s", got, emptySHA256)
	}
}

func TestFile_BlockBoundaryIndependence(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "content.txt")
	content := bytes.Repeat([]byte("abcdefgh"), 1000)
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatal(err)
	}

	small, err := checksum.File(p, 3)
	if err != nil {
		t.Fatal(err)
	}
	large, err := checksum.File(p, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	if small != large {
		t.Fatalf("checksum must not depend on block size: %s != %s", small, large)
	}
}

func TestReader_ZeroBlockSizeFallsBackToDefault(t *testing.T) {
	got, err := checksum.Reader(bytes.NewReader([]byte("hi")), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}
}
