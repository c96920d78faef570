package loader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"kbingest/internal/domain"
)

// CommandRunner runs an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PdftotextLoader extracts text with poppler's pdfinfo and pdftotext.
type PdftotextLoader struct {
	run      CommandRunner
	lookPath func(string) (string, error)
}

func NewPdftotextLoader() *PdftotextLoader {
	return &PdftotextLoader{run: execRunner, lookPath: exec.LookPath}
}

func (l *PdftotextLoader) Name() string { return "pdftotext" }

func (l *PdftotextLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := l.lookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not found: install poppler-utils (brew install poppler on macOS)")
	}

	total, err := l.pageCount(ctx, path)
	if err != nil {
		return nil, err
	}
	pages := make([]domain.Page, total)
	for i := 0; i < total; i++ {
		out, err := l.run(ctx, "pdftotext", "-f", strconv.Itoa(i+1), "-l", strconv.Itoa(i+1), "-layout", path, "-")
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i+1, err)
		}
		pages[i] = domain.Page{
			Source: path,
			Number: i + 1,
			Total:  total,
			Text:   normalizeText(string(out)),
		}
	}
	return pages, nil
}

// pageCount parses "Pages: N" from pdfinfo output.
func (l *PdftotextLoader) pageCount(ctx context.Context, path string) (int, error) {
	out, err := l.run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w", path, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		return count, nil
	}
	return 0, fmt.Errorf("could not determine page count from pdfinfo")
}
