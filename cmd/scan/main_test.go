package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/anime-shed/synthscan/pkg/models"
)

func writeBlackPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "black.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func decodeLines(t *testing.T, out *bytes.Buffer) []models.ScanResult {
	t.Helper()
	var results []models.ScanResult
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var r models.ScanResult
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", sc.Text(), err)
		}
		results = append(results, r)
	}
	return results
}

func TestRun_ScoresFiles(t *testing.T) {
	path := writeBlackPNG(t, t.TempDir())
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-seed", "5", "-quiet", path}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, stderr.String())
	}

	results := decodeLines(t, &stdout)
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].File != path || results[0].Score != 48 || results[0].Format != "png" {
		t.Errorf("Unexpected result %+v", results[0])
	}
}

func TestRun_MissingFileReportsError(t *testing.T) {
	dir := t.TempDir()
	good := writeBlackPNG(t, dir)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-quiet", filepath.Join(dir, "missing.png"), good}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}

	results := decodeLines(t, &stdout)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Error == "" {
		t.Error("Expected an error for the missing file")
	}
	if results[1].Error != "" {
		t.Errorf("Expected the second file to be scored, got %q", results[1].Error)
	}
}

func TestRun_MaxPixelsRejectsLargeImages(t *testing.T) {
	path := writeBlackPNG(t, t.TempDir())
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-quiet", "-max-pixels", "9999", path}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}

	results := decodeLines(t, &stdout)
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Error == "" {
		t.Error("Expected the 100x100 image to exceed a 9999 pixel limit")
	}
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != 2 {
		t.Errorf("Expected exit 2 without files, got %d", code)
	}
	if code := run(context.Background(), []string{"-mode", "turbo", "x.png"}, &stdout, &stderr); code != 2 {
		t.Errorf("Expected exit 2 for unknown mode, got %d", code)
	}
}
