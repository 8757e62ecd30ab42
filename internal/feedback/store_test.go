package feedback

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, sink BlobSink) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), sink)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	store.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return store
}

func pngDataURL(t *testing.T) (string, []byte) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < 16; i++ {
		img.Set(i, i, color.NRGBA{0, 200, 0, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), buf.Bytes()
}

// readEntries parses feedback.log in write order.
func readEntries(t *testing.T, store *Store) []Entry {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(store.root, logFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("Invalid log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

type memorySink struct {
	uploads map[string][]byte
	err     error
}

func (m *memorySink) Upload(_ context.Context, name string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.uploads == nil {
		m.uploads = map[string][]byte{}
	}
	m.uploads[name] = data
	return nil
}

func TestStore_SubmitMessageOnly(t *testing.T) {
	store := newTestStore(t, nil)

	res, err := store.Submit(context.Background(), Submission{Email: "a@b.c", Msg: "false positive"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SavedBg || res.BgPath != "" {
		t.Errorf("Expected no background, got %+v", res)
	}

	entries := readEntries(t, store)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	want := Entry{Email: "a@b.c", Msg: "false positive", Time: "2023-11-14T22:13:20.123Z"}
	if entries[0] != want {
		t.Errorf("Expected %+v, got %+v", want, entries[0])
	}
}

func TestStore_MissingMessage(t *testing.T) {
	store := newTestStore(t, nil)
	for _, msg := range []string{"", "   "} {
		if _, err := store.Submit(context.Background(), Submission{Msg: msg}); !errors.Is(err, ErrMissingMessage) {
			t.Errorf("Expected ErrMissingMessage for %q, got %v", msg, err)
		}
	}
	if entries := readEntries(t, store); len(entries) != 0 {
		t.Errorf("Expected nothing logged, got %d entries", len(entries))
	}
}

func TestStore_SubmitWithBackground(t *testing.T) {
	sink := &memorySink{}
	store := newTestStore(t, sink)
	dataURL, raw := pngDataURL(t)

	res, err := store.Submit(context.Background(), Submission{Msg: "see background", BgData: dataURL})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.SavedBg || res.BgPath != "backgrounds/bg_1700000000123.png.zst" {
		t.Fatalf("Unexpected result %+v", res)
	}

	// Stored compressed, round-trips to the original bytes
	onDisk, err := os.ReadFile(filepath.Join(store.root, filepath.FromSlash(res.BgPath)))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(onDisk, raw) {
		t.Error("Expected background to be stored compressed")
	}
	got, err := store.ReadBackground(res.BgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data, raw) {
		t.Error("Expected decompressed background to match the upload")
	}
	if got.MimeType != "image/png" || got.Ext != "png" {
		t.Errorf("Expected image/png, got %q (%q)", got.MimeType, got.Ext)
	}

	if _, ok := sink.uploads[res.BgPath]; !ok {
		t.Error("Expected background to be mirrored to the sink")
	}

	entries := readEntries(t, store)
	if len(entries) != 1 || entries[0].BgPath != res.BgPath {
		t.Fatalf("Unexpected entries %+v", entries)
	}
	if entries[0].BgHash == "" || !strings.HasPrefix(entries[0].BgHash, "d:") {
		t.Errorf("Expected a dHash for the background, got %q", entries[0].BgHash)
	}
}

func TestStore_SameMillisecondDoesNotOverwrite(t *testing.T) {
	store := newTestStore(t, nil)
	dataURL, _ := pngDataURL(t)

	first, err := store.Submit(context.Background(), Submission{Msg: "one", BgData: dataURL})
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Submit(context.Background(), Submission{Msg: "two", BgData: dataURL})
	if err != nil {
		t.Fatal(err)
	}
	if first.BgPath == second.BgPath {
		t.Errorf("Expected distinct paths, both were %s", first.BgPath)
	}
	if second.BgPath != "backgrounds/bg_1700000000124.png.zst" {
		t.Errorf("Expected the next free stamp, got %s", second.BgPath)
	}
}

func TestStore_SinkFailureIsNotFatal(t *testing.T) {
	store := newTestStore(t, &memorySink{err: errors.New("unreachable")})
	dataURL, _ := pngDataURL(t)

	res, err := store.Submit(context.Background(), Submission{Msg: "x", BgData: dataURL})
	if err != nil {
		t.Fatalf("Expected sink failures to be tolerated, got %v", err)
	}
	if !res.SavedBg {
		t.Error("Expected the local copy to be saved")
	}
}

func TestStore_NonImageDataURLIsIgnored(t *testing.T) {
	store := newTestStore(t, nil)

	res, err := store.Submit(context.Background(), Submission{Msg: "x", BgData: "data:text/plain;base64,aGVsbG8="})
	if err != nil {
		t.Fatal(err)
	}
	if res.SavedBg {
		t.Error("Expected non-image data URL to be ignored")
	}
}

func TestStore_ReadBackgroundRejectsTraversal(t *testing.T) {
	store := newTestStore(t, nil)
	for _, p := range []string{"../secret", "feedback.log", "backgrounds/../feedback.log", "backgrounds/sub/bg_1.png.zst", "backgrounds/bg_1.png"} {
		if _, err := store.ReadBackground(p); !errors.Is(err, ErrInvalidBackgroundPath) {
			t.Errorf("Expected %q to be rejected, got %v", p, err)
		}
	}
}

func TestStore_ReadBackgroundMissing(t *testing.T) {
	store := newTestStore(t, nil)
	if _, err := store.ReadBackground("backgrounds/bg_1.png.zst"); !errors.Is(err, ErrBackgroundNotFound) {
		t.Errorf("Expected ErrBackgroundNotFound, got %v", err)
	}
}

func TestMimeForExt(t *testing.T) {
	tests := map[string]string{
		"png":  "image/png",
		"jpeg": "image/jpeg",
		"jpg":  "image/jpeg",
		"svg":  "image/svg+xml",
		"webp": "image/webp",
		"":     "application/octet-stream",
	}
	for ext, want := range tests {
		if got := mimeForExt(ext); got != want {
			t.Errorf("mimeForExt(%q) = %q, want %q", ext, got, want)
		}
	}
}

// blockingSink holds every upload until release is closed.
type blockingSink struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSink) Upload(ctx context.Context, _ string, _ []byte) error {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestStore_SlowSinkDoesNotBlockOtherSubmissions(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	store := newTestStore(t, sink)
	dataURL, _ := pngDataURL(t)

	slow := make(chan error, 1)
	go func() {
		_, err := store.Submit(context.Background(), Submission{Msg: "with bg", BgData: dataURL})
		slow <- err
	}()
	<-sink.started

	fast := make(chan error, 1)
	go func() {
		_, err := store.Submit(context.Background(), Submission{Msg: "text only"})
		fast <- err
	}()

	select {
	case err := <-fast:
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Message-only submission waited on the background upload")
	}

	close(sink.release)
	if err := <-slow; err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if entries := readEntries(t, store); len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}
}
