package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kbingest/internal/pdftest"
)

func writePDF(t *testing.T, pages []string) string {
	t.Helper()
	return pdftest.Write(t, t.TempDir(), "doc.pdf", pages)
}

func TestNativeLoaderYieldsOnePagePerPDFPage(t *testing.T) {
	path := writePDF(t, []string{"alpha page one", "bravo page two", "charlie page three"})

	pages, err := NewNativeLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	words := []string{"alpha", "bravo", "charlie"}
	for i, p := range pages {
		if p.Number != i+1 || p.Total != 3 || p.Source != path {
			t.Errorf("page %d = %+v", i, p)
		}
		if !strings.Contains(p.Text, words[i]) {
			t.Errorf("page %d text %q missing %q", i+1, p.Text, words[i])
		}
	}
}

func TestNativeLoaderMissingFile(t *testing.T) {
	_, err := NewNativeLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestNativeLoaderCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("definitely not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewNativeLoader().Load(context.Background(), path); err == nil {
		t.Fatal("expected parse error")
	}
}

func fakePoppler(pages []string, calls *[]string) CommandRunner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, name+" "+strings.Join(args, " "))
		switch name {
		case "pdfinfo":
			return []byte(fmt.Sprintf("Title:          test\nPages:          %d\nEncrypted:      no\n", len(pages))), nil
		case "pdftotext":
			var n int
			fmt.Sscanf(args[1], "%d", &n)
			return []byte(pages[n-1] + "\r\n\f"), nil
		}
		return nil, fmt.Errorf("unexpected command %s", name)
	}
}

func TestPdftotextLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var calls []string
	l := &PdftotextLoader{
		run:      fakePoppler([]string{"first", "second"}, &calls),
		lookPath: func(string) (string, error) { return "/usr/bin/pdftotext", nil },
	}
	pages, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].Text != "first\n" || pages[1].Text != "second\n" {
		t.Fatalf("unexpected texts: %q, %q", pages[0].Text, pages[1].Text)
	}
	if pages[1].Number != 2 || pages[1].Total != 2 {
		t.Fatalf("page 2 = %+v", pages[1])
	}
	if len(calls) != 3 || !strings.HasPrefix(calls[2], "pdftotext -f 2 -l 2 -layout") {
		t.Fatalf("unexpected calls: %q", calls)
	}
}

func TestPdftotextLoaderMissingBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := &PdftotextLoader{
		run:      func(context.Context, string, ...string) ([]byte, error) { return nil, nil },
		lookPath: func(string) (string, error) { return "", errors.New("not found") },
	}
	_, err := l.Load(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "poppler") {
		t.Fatalf("err = %v, want poppler hint", err)
	}
}

func TestPdftotextLoaderBadPdfinfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := &PdftotextLoader{
		run:      func(context.Context, string, ...string) ([]byte, error) { return []byte("Title: x\n"), nil },
		lookPath: func(string) (string, error) { return "/bin/true", nil },
	}
	if _, err := l.Load(context.Background(), path); err == nil {
		t.Fatal("expected page count error")
	}
}
