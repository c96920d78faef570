package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kbingest/internal/config"
	"kbingest/internal/pdftest"
	"kbingest/internal/service"
	"kbingest/internal/vectorstore/sqlite"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	t.Setenv("KBINGEST_PDF_PATH", "")
	t.Setenv("KBINGEST_STORE_DIR", "")
	t.Setenv("KBINGEST_LOG_LEVEL", "")
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Input.PDFPath = filepath.Join(dir, config.DefaultPDFPath)
	cfg.VectorStore.Dir = filepath.Join(dir, "knowledge_db")
	return cfg
}

func assertNoStore(t *testing.T, cfg *config.AppConfig) {
	t.Helper()
	if _, err := os.Stat(cfg.VectorStore.Dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("store dir was touched: %v", err)
	}
}

func TestRunMissingCredential(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	cfg := testConfig(t)
	pdftest.Write(t, filepath.Dir(cfg.Input.PDFPath), config.DefaultPDFPath, []string{"triage"})

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cfg, &stdout, &stderr)
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	if !strings.Contains(err.Error(), "GOOGLE_API_KEY not found in environment or .env file") {
		t.Fatalf("unexpected message %q", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	assertNoStore(t, cfg)
}

func TestRunMissingPDF(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedder.Type = "tfidf"

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cfg, &stdout, &stderr)
	if !errors.Is(err, service.ErrSourceNotFound) {
		t.Fatalf("err = %v, want ErrSourceNotFound", err)
	}
	want := "📄 Loading " + cfg.Input.PDFPath + "...\n" +
		"Error: " + cfg.Input.PDFPath + " not found. Please add the PDF to this folder."
	if strings.TrimSpace(stdout.String()) != want {
		t.Fatalf("output = %q, want %q", stdout.String(), want)
	}
	assertNoStore(t, cfg)
}

func TestRunIngestsIntoSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Embedder.Type = "tfidf"
	pdftest.Write(t, filepath.Dir(cfg.Input.PDFPath), config.DefaultPDFPath, []string{
		"triage severity index handbook",
		"emergency acuity resource levels",
		"vital signs protocol nurse",
	})

	for i := 0; i < 2; i++ {
		var stdout, stderr bytes.Buffer
		if err := run(ctx, cfg, &stdout, &stderr); err != nil {
			t.Fatalf("run %d: %v\nstderr: %s", i, err, stderr.String())
		}
		out := stdout.String()
		for _, want := range []string{
			"📄 Loading " + cfg.Input.PDFPath + "...",
			"   Found 3 pages.",
			"   Created 3 knowledge chunks.",
			"Vectorizing and storing (this may take a moment)...",
			"Success! Knowledge Base saved to " + cfg.VectorStore.Dir,
		} {
			if !strings.Contains(out, want) {
				t.Fatalf("run %d output missing %q:\n%s", i, want, out)
			}
		}
	}

	store, err := sqlite.Open(ctx, cfg.VectorStore.Dir, cfg.VectorStore.Collection)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("store has %d rows after two runs, want 3", n)
	}
}

func TestRunUnknownComponent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedder.Type = "word2vec"
	pdftest.Write(t, filepath.Dir(cfg.Input.PDFPath), config.DefaultPDFPath, []string{"triage"})

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cfg, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "unknown embedder") {
		t.Fatalf("err = %v, want unknown embedder", err)
	}
	assertNoStore(t, cfg)
}

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"handbook.pdf"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for positional argument")
	}
}
