// Package output writes extraction results to disk: one PNG per
// problem, a metadata record describing them, and a ZIP archive
// bundling everything for download.
package output

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dwkim-dev/probcut/imaging"
)

// BBox is the pixel rectangle a problem was cropped from, in the
// coordinate space of its source page.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Problem describes one extracted problem image.
type Problem struct {
	Num     int    `json:"num"`
	File    string `json:"file"`
	BBox    BBox   `json:"bbox"`
	Success bool   `json:"success"`
}

// Metadata is the record handed to downstream consumers alongside the
// image files.
type Metadata struct {
	SourcePDF      string    `json:"source_pdf"`
	ExtractionDate time.Time `json:"extraction_date"`
	TotalProblems  int       `json:"total_problems"`
	Problems       []Problem `json:"problems"`
}

// Writer emits problem images, metadata, and the archive into one
// output directory.
type Writer struct {
	dir string
	log *logrus.Entry
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return &Writer{
		dir: dir,
		log: logrus.WithField("component", "output"),
	}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteProblem writes one cropped problem image as
// problem_{num:02d}.png and returns its file name.
func (w *Writer) WriteProblem(num int, img *imaging.Page) (string, error) {
	name := fmt.Sprintf("problem_%02d.png", num)
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	defer f.Close()

	if err := img.EncodePNG(f); err != nil {
		return "", fmt.Errorf("output: encode %s: %w", name, err)
	}
	return name, nil
}

// WriteMetadata writes metadata.json and returns its path.
func (w *Writer) WriteMetadata(meta Metadata) (string, error) {
	path := filepath.Join(w.dir, "metadata.json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("output: write metadata: %w", err)
	}
	return path, nil
}

// Package bundles every PNG in the output directory plus metadata.json
// into extracted.zip and returns the archive path. The archive itself
// is excluded from its own contents.
func (w *Writer) Package() (string, error) {
	zipPath := filepath.Join(w.dir, "extracted.zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	defer zf.Close()

	zw := zip.NewWriter(zf)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == "extracted.zip" {
			continue
		}
		if filepath.Ext(name) != ".png" && name != "metadata.json" {
			continue
		}
		if err := addToZip(zw, w.dir, name); err != nil {
			return "", err
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("output: finalize archive: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"archive": zipPath,
		"files":   count,
	}).Info("Packaged output")
	return zipPath, nil
}

func addToZip(zw *zip.Writer, dir, name string) error {
	src, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("output: archive %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("output: archive %s: %w", name, err)
	}
	return nil
}
