package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/evload/core/align"
	"github.com/kilianp07/evload/core/archive"
	"github.com/kilianp07/evload/core/logger"
	"github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/tabular"
)

// Result is everything the decode chain produced for one archive.
type Result struct {
	Dataset model.ChartDataset
	Tables  map[string]model.Table
	// Skipped lists archive entries ignored for not being tabular.
	Skipped []string
	// Unreadable lists tabular entries other than the two results tables
	// that failed to parse.
	Unreadable []string
	// Mismatches are row indices whose time labels differ between tables.
	Mismatches []int
}

// Stages runs decode, parse and align over a result archive.
type Stages struct {
	Window  int
	Log     logger.Logger
	Timings metrics.StageRecorder
	now     func() time.Time
}

// NewStages returns Stages with the default window and no-op collaborators.
func NewStages() *Stages {
	return &Stages{Window: model.WindowSize, Log: logger.Nop{}, Timings: metrics.NopSink{}, now: time.Now}
}

// Run turns archive into a chart dataset. Each stage consumes only the
// previous stage's output; the first failure ends the run with a
// *StageError and no partial result.
func (s *Stages) Run(ctx context.Context, runID string, a model.ResultArchive) (Result, error) {
	s.defaults()
	var res Result

	var files []model.ExtractedFile
	err := s.stage(ctx, runID, StageDecode, func() error {
		arc, err := archive.Decode(a)
		if err != nil {
			return fail(StageDecode, ErrDecode, err)
		}
		res.Skipped = arc.Skipped()
		if len(res.Skipped) > 0 {
			s.Log.Debugf("run %s: ignored non-tabular entries %v", runID, res.Skipped)
		}
		if files, err = arc.Files(); err != nil {
			return fail(StageDecode, ErrDecode, err)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = s.stage(ctx, runID, StageParse, func() error {
		tables, perr := tabular.ParseFiles(files)
		for _, name := range []string{model.ManagedResultsFile, model.UnmanagedResultsFile} {
			if _, ok := tables[name]; ok {
				continue
			}
			if perr != nil && present(files, name) {
				return fail(StageParse, ErrDecode, perr)
			}
			return fail(StageParse, ErrDecode, fmt.Errorf("%w: %s", archive.ErrNotFound, name))
		}
		if perr != nil {
			for _, f := range files {
				if _, ok := tables[f.Name]; !ok {
					res.Unreadable = append(res.Unreadable, f.Name)
				}
			}
			s.Log.Warnf("run %s: unreadable archive entries %v: %v", runID, res.Unreadable, perr)
		}
		for name, t := range tables {
			for _, is := range t.Issues {
				s.Log.Warnf("run %s: %s line %d has %d fields, header has %d", runID, name, is.Line, is.Got, is.Want)
			}
		}
		res.Tables = tables
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = s.stage(ctx, runID, StageAlign, func() error {
		managed, unmanaged := res.Tables[model.ManagedResultsFile], res.Tables[model.UnmanagedResultsFile]
		ds, err := align.Align(managed, unmanaged, s.Window)
		if err != nil {
			return fail(StageAlign, ErrAlignment, err)
		}
		ds.RunID = runID
		ds.CreatedAt = s.now()
		res.Dataset = ds
		res.Mismatches = align.TimeMismatches(managed, unmanaged, s.Window)
		if n := len(res.Mismatches); n > 0 {
			s.Log.Warnf("run %s: %d rows paired with differing time labels, first at index %d", runID, n, res.Mismatches[0])
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func present(files []model.ExtractedFile, name string) bool {
	for _, f := range files {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (s *Stages) stage(ctx context.Context, runID, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fail(name, kindFor(name), err)
	}
	start := s.now()
	err := fn()
	st := metrics.StageTiming{RunID: runID, Stage: name, Duration: s.now().Sub(start), Failed: err != nil, Time: start}
	if rerr := s.Timings.RecordStage(st); rerr != nil {
		s.Log.Warnf("record stage %s: %v", name, rerr)
	}
	return err
}

func (s *Stages) defaults() {
	if s.Window <= 0 {
		s.Window = model.WindowSize
	}
	s.Log = logger.OrNop(s.Log)
	if s.Timings == nil {
		s.Timings = metrics.NopSink{}
	}
	if s.now == nil {
		s.now = time.Now
	}
}

func kindFor(stage string) error {
	if stage == StageAlign {
		return ErrAlignment
	}
	return ErrDecode
}
