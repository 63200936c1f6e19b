package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_Stdout(t *testing.T) {
	for _, target := range []string{"", "-"} {
		w, err := Open(target)
		if err != nil {
			t.Fatalf("Open(%q): %v", target, err)
		}
		// Closing the sink must not close the process stdout.
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if _, err := os.Stdout.Stat(); err != nil {
			t.Fatalf("stdout unusable after close: %v", err)
		}
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.rtcm")
	if err := os.WriteFile(path, []byte("stale leftovers from a previous run"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	payload := []byte("binary\x00payload")
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("file=%q want %q", got, payload)
	}
}

func TestOpen_FileScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.rtcm")
	w, err := Open("file://" + path)
	if err != nil {
		t.Fatalf("Open(file://%s): %v", path, err)
	}
	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file missing: %v", err)
	}
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	if _, err := Open("gopher://example.com/x"); err == nil {
		t.Fatal("unsupported scheme accepted")
	}
}
