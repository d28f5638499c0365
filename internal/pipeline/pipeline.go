// Package pipeline turns one catalog image into a hit or a miss: download,
// decode, persist, recognize, match and promote.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	// Registers the webp decoder with image.Decode.
	_ "golang.org/x/image/webp"

	"github.com/JakeFAU/pris-scanner/internal/fuzzy"
	"github.com/JakeFAU/pris-scanner/internal/scanner"
)

// Workspace is the subset of the local workspace the pipeline needs.
type Workspace interface {
	Put(filename string, img image.Image, raw []byte) (string, error)
	MarkHit(filename, term string) error
	Promote(filename string) (string, error)
}

// Reporter prints per-image console lines.
type Reporter interface {
	Hit(filename, term string)
	Failure(filename string, err error)
}

// Deps bundles the collaborators of a Pipeline.
type Deps struct {
	Downloader scanner.ImageDownloader
	Recognizer scanner.TextRecognizer
	Matcher    *fuzzy.Matcher
	Workspace  Workspace
	Reporter   Reporter
	Clock      scanner.Clock
	Logger     *zap.Logger
}

// Pipeline processes image tasks. It is safe for concurrent use as long as
// its collaborators are.
type Pipeline struct {
	downloader scanner.ImageDownloader
	recognizer scanner.TextRecognizer
	matcher    *fuzzy.Matcher
	workspace  Workspace
	reporter   Reporter
	clock      scanner.Clock
	logger     *zap.Logger
}

// New validates deps and builds a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Downloader == nil:
		return nil, errors.New("downloader is required")
	case deps.Recognizer == nil:
		return nil, errors.New("recognizer is required")
	case deps.Matcher == nil:
		return nil, errors.New("matcher is required")
	case deps.Workspace == nil:
		return nil, errors.New("workspace is required")
	}
	p := &Pipeline{
		downloader: deps.Downloader,
		recognizer: deps.Recognizer,
		matcher:    deps.Matcher,
		workspace:  deps.Workspace,
		reporter:   deps.Reporter,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
	if p.reporter == nil {
		p.reporter = nopReporter{}
	}
	if p.clock == nil {
		p.clock = wallClock{}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p, nil
}

// Process handles one image. Every failure, panics included, is reported on
// the returned Outcome and never propagates to the caller.
func (p *Pipeline) Process(ctx context.Context, task scanner.ImageTask) scanner.Outcome {
	filename := task.Filename()
	start := p.clock.Now()
	logger := p.logger.With(
		zap.String("store", task.Store.String()),
		zap.String("file", filename),
	)

	res, err := p.safeRun(ctx, task, filename)
	out := scanner.Outcome{
		Task:     task,
		Filename: filename,
		Bytes:    res.bytes,
		Duration: p.clock.Now().Sub(start),
	}
	if err != nil {
		out.Err = err
		p.reporter.Failure(filename, err)
		logger.Debug("image failed", zap.Error(err))
		return out
	}
	if res.match != nil {
		out.Hit = &scanner.Hit{
			Store:    task.Store,
			Filename: filename,
			Term:     res.match.Term,
			Score:    res.match.Score,
		}
		p.reporter.Hit(filename, res.match.Term)
		logger.Info("image matched",
			zap.String("term", res.match.Term),
			zap.Int("score", res.match.Score),
			zap.Duration("dur", out.Duration))
		return out
	}
	logger.Debug("image did not match", zap.Duration("dur", out.Duration))
	return out
}

type result struct {
	bytes int
	match *fuzzy.Match
}

func (p *Pipeline) safeRun(ctx context.Context, task scanner.ImageTask, filename string) (res result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res.match = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.run(ctx, task, filename)
}

func (p *Pipeline) run(ctx context.Context, task scanner.ImageTask, filename string) (result, error) {
	var res result

	raw, err := p.downloader.Download(ctx, task.Image.URL)
	if err != nil {
		return res, err
	}
	res.bytes = len(raw)

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return res, fmt.Errorf("decode image: %w", err)
	}
	if _, err := p.workspace.Put(filename, img, raw); err != nil {
		return res, err
	}

	text, err := p.recognizer.Recognize(ctx, img)
	if err != nil {
		return res, fmt.Errorf("ocr: %w", err)
	}

	match, ok := p.matcher.Match(text)
	if !ok {
		return res, nil
	}
	if err := p.workspace.MarkHit(filename, match.Term); err != nil {
		return res, err
	}
	if _, err := p.workspace.Promote(filename); err != nil {
		return res, err
	}
	res.match = &match
	return res, nil
}

type nopReporter struct{}

func (nopReporter) Hit(string, string)     {}
func (nopReporter) Failure(string, error) {}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }
