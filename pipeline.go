package probcut

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dwkim-dev/probcut/boundary"
	"github.com/dwkim-dev/probcut/layout"
	"github.com/dwkim-dev/probcut/marker"
	"github.com/dwkim-dev/probcut/ocr"
	"github.com/dwkim-dev/probcut/output"
	"github.com/dwkim-dev/probcut/rasterize"
	"github.com/dwkim-dev/probcut/textsearch"
	"github.com/dwkim-dev/probcut/validate"
)

// ErrNoProblems is returned when a page yields no markers in any of
// its columns; the sheet is unreadable and the job cannot produce a
// meaningful result.
var ErrNoProblems = errors.New("probcut: no problem markers detected")

// run drives the extraction state machine to completion.
func (e *Extractor) run(ctx context.Context) (*Result, error) {
	j := newJob()
	log := logrus.WithField("component", "pipeline")

	fail := func(err error) (*Result, error) {
		j.transition(StateFailed)
		log.WithField("state", j.state).WithError(err).Error("Extraction failed")
		return nil, err
	}

	if e.registry == nil {
		return fail(fmt.Errorf("probcut: no engine registry configured"))
	}

	// Rasterize (or accept the caller's page images as-is).
	j.transition(StateConvertingPdf)
	if err := e.loadPages(j); err != nil {
		return fail(err)
	}

	// Layout detection, one concurrent task per page.
	j.transition(StateDetectingLayout)
	if err := e.detectLayouts(ctx, j); err != nil {
		return fail(err)
	}

	// Column separation is cheap cropping; done inline.
	j.transition(StateSeparatingColumns)
	e.separateColumns(j)

	// Stage 1: fast OCR over every column, concurrently, with
	// bounded retries per column.
	j.transition(StateRunningStage1)
	stage1, err := e.stage1Engine()
	if err != nil {
		return fail(err)
	}
	if err := e.runStage1(ctx, j, stage1); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	for _, page := range j.pages {
		if pageMarkerCount(page) == 0 {
			return fail(fmt.Errorf("page %d: %w", page.number, ErrNoProblems))
		}
	}

	// Validate and decide.
	j.transition(StateValidatingStage1)
	expected := e.options.expected
	if expected == nil {
		expected = validate.ExpectedRange(j.detectedNumbers())
	}
	feedback := validate.Validate(j.detectedNumbers(), expected)

	j.transition(StateDeciding)
	stage2, stage2OK := e.stage2Engine()
	decision := decide(len(feedback.Missing), stage2OK)
	log.WithFields(logrus.Fields{
		"missing":  feedback.Missing,
		"decision": decision,
	}).Info("Stage-1 validation complete")

	if decision == DecisionEscalate {
		j.transition(StateRunningStage2)
		if err := e.runStage2(ctx, j, stage2, feedback.Missing); err != nil {
			return fail(err)
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		j.transition(StateValidatingFinal)
		feedback = validate.Validate(j.detectedNumbers(), expected)
	}

	problems := j.collectProblems()

	result := &Result{
		Problems: problems,
		Feedback: feedback,
		Decision: decision,
		Partial:  !feedback.Success,
	}

	if e.options.outputDir != "" {
		j.transition(StateGeneratingFiles)
		if err := e.writeOutput(j, result); err != nil {
			return fail(err)
		}
	}

	j.transition(StateComplete)
	result.State = j.state
	e.warnings = append(e.warnings, j.warnings...)
	return result, nil
}

// loadPages fills the job's page tree from either the caller-supplied
// images or the source PDF.
func (e *Extractor) loadPages(j *job) error {
	if len(e.images) > 0 {
		for i, img := range e.images {
			if img == nil {
				return fmt.Errorf("probcut: page image %d is nil", i+1)
			}
			j.pages = append(j.pages, &pageState{number: i + 1, image: img})
		}
		return nil
	}
	if e.pdfPath == "" {
		return fmt.Errorf("probcut: no input: provide a PDF path or page images")
	}

	rasterized, err := rasterize.New(e.options.dpi).Pages(e.pdfPath)
	if err != nil {
		return err
	}
	for _, p := range rasterized {
		j.pages = append(j.pages, &pageState{number: p.Number, image: p.Image})
	}
	return nil
}

func (e *Extractor) detectLayouts(ctx context.Context, j *job) error {
	detector := layout.NewDetectorWithConfig(e.options.layoutConfig)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.maxConcurrency)
	for _, page := range j.pages {
		page := page
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page.layout = detector.Detect(page.image)
			return nil
		})
	}
	return g.Wait()
}

func (e *Extractor) separateColumns(j *job) {
	for _, page := range j.pages {
		for i, img := range layout.Separate(page.image, page.layout) {
			if img == nil {
				continue
			}
			page.cols = append(page.cols, &columnState{
				pageNumber: page.number,
				index:      i,
				bound:      page.layout.Columns[i],
				image:      img,
			})
		}
	}
}

// stage1Engine resolves the fast-tier engine, trying the fallback when
// the primary is missing or unusable.
func (e *Extractor) stage1Engine() (ocr.Engine, error) {
	names := []string{e.options.strategy.Stage1Engine}
	if fb := e.options.strategy.FallbackEngine; fb != "" {
		names = append(names, fb)
	}
	for _, name := range names {
		eng, err := e.registry.Get(name)
		if err != nil {
			continue
		}
		if eng.Available() {
			return eng, nil
		}
	}
	return nil, fmt.Errorf("probcut: stage-1 engine %q: %w",
		e.options.strategy.Stage1Engine, ocr.ErrEngineUnavailable)
}

// stage2Engine resolves the accurate-tier engine; a missing or
// unavailable engine disables escalation rather than failing anything.
func (e *Extractor) stage2Engine() (ocr.Engine, bool) {
	name := e.options.strategy.Stage2Engine
	if name == "" {
		return nil, false
	}
	eng, err := e.registry.Get(name)
	if err != nil || !eng.Available() {
		return nil, false
	}
	return eng, true
}

func (e *Extractor) runStage1(ctx context.Context, j *job, engine ocr.Engine) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.maxConcurrency)
	for _, page := range j.pages {
		recognizer := e.recognizerForPage(page.number)
		for _, col := range page.cols {
			col := col
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				e.runColumnStage1(gctx, j, col, engine, recognizer)
				return nil
			})
		}
	}
	return g.Wait()
}

// runColumnStage1 runs OCR over one column with up to MaxRetries
// attempts, each more permissive than the last. Engine failures and
// empty columns are recorded as warnings, never propagated; sibling
// columns proceed regardless.
func (e *Extractor) runColumnStage1(ctx context.Context, j *job, col *columnState, engine ocr.Engine, rec *marker.Recognizer) {
	stage := fmt.Sprintf("stage1[p%d c%d]", col.pageNumber, col.index)

	params := initialParams(e.options.minConfidence)
	var markers []marker.Marker
	for {
		col.attempts = params.Attempt
		res, err := engine.Execute(ctx, ocr.Input{
			Image:         col.image.Image(),
			Languages:     e.options.languages,
			DPI:           e.options.dpi,
			MinConfidence: params.MinConfidence,
		})
		if err != nil {
			j.warn(stage, fmt.Sprintf("attempt %d: %v", params.Attempt, err))
			col.ocrFailed = true
		} else {
			col.ocrFailed = false
			markers = filterByBand(rec.Parse(res), params.MarkerBand)
		}

		if len(markers) > 0 || params.Attempt >= e.options.strategy.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return
		}
		params = params.Relax()
	}

	col.markers = markers
	e.cutProblems(j, col, stage)
}

// cutProblems recomputes a column's boundaries and cropped problem
// images from its current marker set.
func (e *Extractor) cutProblems(j *job, col *columnState, stage string) {
	col.boundaries = nil
	col.problems = nil

	boundaries, warnings, err := boundary.Calculate(col.markers, col.image.Height(), col.image.Width())
	if err != nil {
		j.warn(stage, fmt.Sprintf("no boundaries: %v", err))
		return
	}
	for _, w := range warnings {
		j.warn(stage, w.String())
	}
	col.boundaries = boundaries

	estimated := make(map[int]bool)
	engines := make(map[int]string)
	for _, m := range col.markers {
		if m.Estimated {
			estimated[m.Number] = true
		}
		engines[m.Number] = m.SourceEngine
	}

	for _, b := range boundaries {
		crop := col.image.CropRows(b.YStart, b.YEnd)
		if crop == nil {
			continue
		}
		crop = crop.TrimWhitespace()
		if e.options.maxProblemWidth > 0 {
			crop = crop.Downscale(e.options.maxProblemWidth)
		}
		col.problems = append(col.problems, ExtractedProblem{
			Page:      col.pageNumber,
			Column:    col.index,
			Number:    b.Number,
			Image:     crop,
			BBox:      pageRect(col, b),
			Estimated: estimated[b.Number],
			Engine:    engines[b.Number],
		})
	}
}

// runStage2 re-reads the columns that should contain the missing
// numbers with the accurate engine. Remote timeouts and API errors
// abort escalation for that column only; its stage-1 results stand.
// Only a cancelled context produces a non-nil error, and that aborts
// the whole job.
func (e *Extractor) runStage2(ctx context.Context, j *job, engine ocr.Engine, missing []int) error {
	cols := j.columnsForMissing(missing)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.maxConcurrency)
	for _, col := range cols {
		col := col
		recognizer := e.recognizerForPage(col.pageNumber)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stage := fmt.Sprintf("stage2[p%d c%d]", col.pageNumber, col.index)
			res, err := engine.Execute(gctx, ocr.Input{
				Image:     col.image.Image(),
				Languages: e.options.languages,
				DPI:       e.options.dpi,
			})
			if err != nil {
				j.warn(stage, err.Error())
				return nil
			}
			found := recognizer.Parse(res)
			if len(found) == 0 {
				return nil
			}
			col.markers = marker.Merge(col.markers, found)
			e.cutProblems(j, col, stage)
			return nil
		})
	}
	return g.Wait()
}

// recognizerForPage builds the marker recognizer for one page,
// attaching the PDF text-layer searcher when the input is a PDF on
// disk. A PDF without a text layer just makes every search miss.
func (e *Extractor) recognizerForPage(pageNumber int) *marker.Recognizer {
	if e.pdfPath == "" {
		return marker.NewRecognizer()
	}
	searcher, err := textsearch.Open(e.pdfPath, pageNumber, e.options.dpi)
	if err != nil {
		return marker.NewRecognizer()
	}
	return marker.NewRecognizerWithSearcher(searcher)
}

// writeOutput generates problem image files, metadata, and the final
// archive.
func (e *Extractor) writeOutput(j *job, result *Result) error {
	writer, err := output.NewWriter(e.options.outputDir)
	if err != nil {
		return err
	}

	meta := output.Metadata{
		SourcePDF:      e.pdfPath,
		ExtractionDate: time.Now(),
		TotalProblems:  len(result.Problems),
	}
	for _, p := range result.Problems {
		name, err := writer.WriteProblem(p.Number, p.Image)
		if err != nil {
			return err
		}
		meta.Problems = append(meta.Problems, output.Problem{
			Num:  p.Number,
			File: name,
			BBox: output.BBox{
				X:      p.BBox.Min.X,
				Y:      p.BBox.Min.Y,
				Width:  p.BBox.Dx(),
				Height: p.BBox.Dy(),
			},
			Success: !p.Estimated,
		})
	}

	path, err := writer.WriteMetadata(meta)
	if err != nil {
		return err
	}
	result.MetadataPath = path

	j.transition(StatePackaging)
	archive, err := writer.Package()
	if err != nil {
		return err
	}
	result.ArchivePath = archive
	return nil
}

// filterByBand drops markers sitting further from the column's left
// edge than the accepted band. Problem numbers hug the left margin;
// numbers deep inside the text body are dates, answers, or prices.
func filterByBand(markers []marker.Marker, band int) []marker.Marker {
	out := markers[:0]
	for _, m := range markers {
		if m.X <= band {
			out = append(out, m)
		}
	}
	return out
}

func pageMarkerCount(page *pageState) int {
	n := 0
	for _, col := range page.cols {
		n += len(col.markers)
	}
	return n
}

func pageRect(col *columnState, b boundary.Boundary) image.Rectangle {
	return image.Rect(col.bound.LeftX, b.YStart, col.bound.RightX, b.YEnd)
}
