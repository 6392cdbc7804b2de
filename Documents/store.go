package Documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	ThumbnailSize = 256
	MaxFileSize   = 50 << 20
)

var (
	ErrEmptyFile    = errors.New("uploaded file is empty")
	ErrFileTooLarge = errors.New("uploaded file exceeds 50 MB")
)

// Store keeps uploaded files on disk under Root/<trial id>/.
type Store struct {
	Root string
}

// Stored describes a file written by Save.
type Stored struct {
	Path          string
	MimeType      string
	Size          int64
	ThumbnailPath string
	Title         string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create document store: %w", err)
	}
	return &Store{Root: root}, nil
}

// Save writes the file, sniffs its type from the content and derives a
// thumbnail for images or the <title> for HTML.
func (s *Store) Save(trialID uint, fileName string, r io.Reader) (Stored, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return Stored{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Stored{}, ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return Stored{}, ErrFileTooLarge
	}

	dir := filepath.Join(s.Root, strconv.FormatUint(uint64(trialID), 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Stored{}, err
	}

	mt := mimetype.Detect(data)
	out := Stored{
		Path:     filepath.Join(dir, uuid.NewString()+"-"+cleanName(fileName)),
		MimeType: mt.String(),
		Size:     int64(len(data)),
	}
	if err := os.WriteFile(out.Path, data, 0644); err != nil {
		return Stored{}, fmt.Errorf("write document: %w", err)
	}

	switch {
	case strings.HasPrefix(mt.String(), "image/"):
		// Formats imaging cannot decode simply get no thumbnail.
		if thumb, err := writeThumbnail(data, out.Path); err == nil {
			out.ThumbnailPath = thumb
		}
	case mt.Is("text/html"):
		out.Title = htmlTitle(data)
	}
	return out, nil
}

func writeThumbnail(data []byte, path string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}
	thumb := imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)
	thumbPath := path + ".thumb.png"
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return "", err
	}
	return thumbPath, nil
}

func htmlTitle(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Remove deletes a stored file and its thumbnail. Missing files are ignored.
func (s *Store) Remove(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' {
			return '_'
		}
		return r
	}, name)
}
