// Package feedback persists user feedback: a JSON-lines log plus optional
// background images compressed with zstd.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anime-shed/synthscan/internal/analyzer"
	"github.com/anime-shed/synthscan/internal/logger"

	"github.com/corona10/goimagehash"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMissingMessage is returned when a submission has no message.
	ErrMissingMessage = errors.New("missing feedback message")
	// ErrInvalidBackgroundPath rejects paths outside the backgrounds directory.
	ErrInvalidBackgroundPath = errors.New("invalid background path")
	// ErrBackgroundNotFound is returned for a well-formed path with no file behind it.
	ErrBackgroundNotFound = errors.New("background not found")
)

const (
	logFileName    = "feedback.log"
	backgroundsDir = "backgrounds"
)

// Submission is the client payload.
type Submission struct {
	Email  string `json:"email"`
	Msg    string `json:"msg"`
	BgData string `json:"bgData"`
}

// Entry is one line of feedback.log.
type Entry struct {
	Email  string `json:"email"`
	Msg    string `json:"msg"`
	BgPath string `json:"bgPath"`
	BgHash string `json:"bgHash,omitempty"`
	Time   string `json:"time"`
}

// Result reports what was stored.
type Result struct {
	SavedBg bool   `json:"savedBg"`
	BgPath  string `json:"bgPath"`
}

// BlobSink mirrors stored backgrounds to remote storage.
type BlobSink interface {
	Upload(ctx context.Context, name string, data []byte) error
}

// Store writes feedback under a root directory.
type Store struct {
	root string
	sink BlobSink
	now  func() time.Time

	mu sync.Mutex
}

// NewStore creates the root and backgrounds directories. sink may be nil.
func NewStore(root string, sink BlobSink) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, backgroundsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create feedback directory: %w", err)
	}
	return &Store{root: root, sink: sink, now: time.Now}, nil
}

// Submit validates and stores one submission.
func (s *Store) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if strings.TrimSpace(sub.Msg) == "" {
		return nil, ErrMissingMessage
	}

	bg, err := ParseDataURL(sub.BgData)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := Entry{
		Email: sub.Email,
		Msg:   sub.Msg,
		Time:  now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	// Background names are claimed with O_EXCL, so only the log append is serialized
	if bg != nil {
		entry.BgPath, err = s.saveBackground(ctx, bg, now)
		if err != nil {
			return nil, err
		}
		entry.BgHash = backgroundHash(bg.Data)
	}

	s.mu.Lock()
	err = s.appendEntry(entry)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &Result{SavedBg: entry.BgPath != "", BgPath: entry.BgPath}, nil
}

// saveBackground writes backgrounds/bg_<unixmillis>.<ext>.zst and returns its
// path relative to the store root.
func (s *Store) saveBackground(ctx context.Context, bg *Background, now time.Time) (string, error) {
	compressed := compressZstd(bg.Data)

	// Two submissions in the same millisecond take the next free stamp
	var rel string
	for stamp := now.UnixMilli(); ; stamp++ {
		rel = filepath.ToSlash(filepath.Join(backgroundsDir, fmt.Sprintf("bg_%d.%s.zst", stamp, bg.Ext)))
		err := writeExclusive(filepath.Join(s.root, rel), compressed)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("write background: %w", err)
		}
	}

	if s.sink != nil {
		// The local copy is authoritative; a failed mirror is only logged
		if err := s.sink.Upload(ctx, rel, compressed); err != nil {
			logger.WithError(err).WithField("bg_path", rel).Warn("Background upload failed")
		}
	}

	logger.WithFields(logrus.Fields{
		"bg_path":    rel,
		"raw_bytes":  len(bg.Data),
		"zstd_bytes": len(compressed),
	}).Debug("Background saved")
	return rel, nil
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) appendEntry(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode feedback entry: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.root, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append feedback entry: %w", err)
	}
	return nil
}

// ReadBackground returns a stored background, decompressed, with the MIME
// type implied by its file name. bgPath is relative to the store root.
func (s *Store) ReadBackground(bgPath string) (*Background, error) {
	clean := filepath.Clean(filepath.FromSlash(bgPath))
	dir, name := filepath.Split(clean)
	if dir != backgroundsDir+string(filepath.Separator) || !strings.HasSuffix(name, ".zst") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackgroundPath, bgPath)
	}

	compressed, err := os.ReadFile(filepath.Join(s.root, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBackgroundNotFound, bgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read background: %w", err)
	}
	data, err := decompressZstd(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress background: %w", err)
	}

	ext := filepath.Ext(strings.TrimSuffix(name, ".zst"))
	ext = strings.TrimPrefix(ext, ".")
	return &Background{MimeType: mimeForExt(ext), Ext: ext, Data: data}, nil
}

func mimeForExt(ext string) string {
	switch ext {
	case "":
		return "application/octet-stream"
	case "svg":
		return "image/svg+xml"
	case "jpg":
		return "image/jpeg"
	default:
		return "image/" + ext
	}
}

// backgroundHash is the dHash of a decodable background, or "".
func backgroundHash(data []byte) string {
	buf, _, err := analyzer.DecodeImage(data)
	if err != nil {
		return ""
	}
	hash, err := goimagehash.DifferenceHash(buf.Image())
	if err != nil {
		return ""
	}
	return hash.ToString()
}
