// Package rasterize produces page images from scanned PDFs. The target
// document class is scans, so each page carries its content as one
// embedded raster; extraction pulls the embedded images back out
// instead of rendering content streams. Pages with several XObjects
// keep the largest one, which is the scan; smaller ones are logos or
// stamps.
package rasterize

import (
	"fmt"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"

	"github.com/dwkim-dev/probcut/imaging"
)

// DefaultDPI is the assumed render resolution of embedded scans.
const DefaultDPI = 200

// PageImage pairs a 1-indexed page number with its raster.
type PageImage struct {
	Number int
	Image  *imaging.Page
}

// Rasterizer extracts page rasters from PDF files.
type Rasterizer struct {
	dpi  int
	conf *model.Configuration
	log  *logrus.Entry
}

// New returns a rasterizer. dpi records the resolution downstream
// coordinate mapping should assume; zero means DefaultDPI.
func New(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{
		dpi:  dpi,
		conf: model.NewDefaultConfiguration(),
		log:  logrus.WithField("component", "rasterize"),
	}
}

// DPI returns the resolution pages are assumed to be rendered at.
func (r *Rasterizer) DPI() int { return r.dpi }

// Pages extracts one raster per page, ordered by page number. A PDF
// that yields no images at all is an error: there is nothing for the
// pipeline to work on.
func (r *Rasterizer) Pages(path string) ([]PageImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, r.conf)
	if err != nil {
		return nil, fmt.Errorf("rasterize: read %s: %w", path, err)
	}
	pageCount := ctx.PageCount
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}

	perPage, err := api.ExtractImagesRaw(f, nil, r.conf)
	if err != nil {
		return nil, fmt.Errorf("rasterize: extract images from %s: %w", path, err)
	}

	var pages []PageImage
	for _, images := range perPage {
		best, pageNr := r.largest(images)
		if best == nil {
			continue
		}
		pages = append(pages, PageImage{Number: pageNr, Image: best})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("rasterize: %s: no page images found in %d pages", path, pageCount)
	}

	sortPages(pages)
	r.log.WithFields(logrus.Fields{
		"source": path,
		"pages":  len(pages),
	}).Info("Rasterized document")
	return pages, nil
}

// largest decodes the images of one page and keeps the biggest by
// pixel area. Undecodable entries are logged and skipped.
func (r *Rasterizer) largest(images map[int]model.Image) (*imaging.Page, int) {
	var best *imaging.Page
	pageNr := 0
	for objNr, img := range images {
		page, err := imaging.Decode(img)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"page":   img.PageNr,
				"object": objNr,
			}).WithError(err).Warn("Skipping undecodable image")
			continue
		}
		if best == nil || page.Width()*page.Height() > best.Width()*best.Height() {
			best = page
			pageNr = img.PageNr
		}
	}
	return best, pageNr
}

func sortPages(pages []PageImage) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
}
