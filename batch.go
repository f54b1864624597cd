package bgcut

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"
	pkgerrors "github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BatchStatus is the per-item state. Terminal states are final.
type BatchStatus string

const (
	StatusPending   BatchStatus = "pending"
	StatusRunning   BatchStatus = "running"
	StatusSucceeded BatchStatus = "succeeded"
	StatusFailed    BatchStatus = "failed"
)

// BatchItem tracks one input through the pipeline.
type BatchItem struct {
	Source   string
	Output   string
	Err      error
	Duration time.Duration

	states *fsm.FSM
}

func (it *BatchItem) Status() BatchStatus {
	return BatchStatus(it.states.Current())
}

func newItemStates() *fsm.FSM {
	return fsm.NewFSM(
		string(StatusPending),
		fsm.Events{
			{Name: "start", Src: []string{string(StatusPending)}, Dst: string(StatusRunning)},
			{Name: "succeed", Src: []string{string(StatusRunning)}, Dst: string(StatusSucceeded)},
			{Name: "fail", Src: []string{string(StatusPending), string(StatusRunning)}, Dst: string(StatusFailed)},
		},
		fsm.Callbacks{},
	)
}

// Progress is delivered to the sink after every item completes, success or
// failure.
type Progress struct {
	Completed   int
	Failed      int
	Total       int
	CurrentFile string
	Percentage  float64
	Elapsed     time.Duration
	ETA         time.Duration
}

// ProgressFunc runs synchronously on the completion path: a slow sink
// throttles overall throughput.
type ProgressFunc func(Progress)

// BatchResult aggregates a whole run. Failure is data: even a run where
// every item fails produces a result, not an error.
type BatchResult struct {
	JobID       string
	Total       int
	Succeeded   int
	Failed      int
	SuccessRate float64
	Items       []*BatchItem
	Duration    time.Duration
}

// FileProcessor runs the single-image pipeline for one path pair. Pipeline
// implements it.
type FileProcessor interface {
	ProcessFile(src, dst string, cfg Config) error
}

// Batch fans the pipeline out over many images with a bounded worker pool
// and failure isolation.
type Batch struct {
	proc FileProcessor
	log  *logrus.Entry
}

func NewBatch(proc FileProcessor) *Batch {
	return &Batch{
		proc: proc,
		log:  logrus.WithField("component", "batch"),
	}
}

// Execute drains the full input list with at most cfg.MaxWorkers parallel
// items. One item's failure never cancels others; ctx cancellation is
// honored between items, never during an in-flight inference. The error
// return covers setup only (output folder creation).
func (b *Batch) Execute(ctx context.Context, inputs []string, outputFolder string, cfg Config, sink ProgressFunc) (*BatchResult, error) {
	jobID := ksuid.New().String()
	log := b.log.WithField("job", jobID)

	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, pkgerrors.Wrapf(ErrIO, "create output folder %s: %v", outputFolder, err)
	}

	items := make([]*BatchItem, len(inputs))
	for i, src := range inputs {
		items[i] = &BatchItem{Source: src, states: newItemStates()}
	}

	total := len(items)
	start := time.Now()

	var mu sync.Mutex
	completed, failed := 0, 0

	finish := func(it *BatchItem, dst string, err error, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()

		it.Duration = d
		if err != nil {
			it.Err = err
			_ = it.states.Event("fail")
			failed++
			log.WithError(err).WithField("file", it.Source).Warn("item failed")
		} else {
			it.Output = dst
			_ = it.states.Event("succeed")
			completed++
		}

		if sink == nil {
			return
		}
		elapsed := time.Since(start)
		var eta time.Duration
		if completed > 0 {
			eta = time.Duration(float64(elapsed) / float64(completed) * float64(total-completed))
		}
		sink(Progress{
			Completed:   completed,
			Failed:      failed,
			Total:       total,
			CurrentFile: filepath.Base(it.Source),
			Percentage:  float64(completed+failed) / float64(total) * 100,
			Elapsed:     elapsed,
			ETA:         eta,
		})
	}

	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				finish(it, "", err, 0)
				return nil
			}
			_ = it.states.Event("start")
			dst := outputName(outputFolder, it.Source)
			t0 := time.Now()
			err := b.proc.ProcessFile(it.Source, dst, cfg)
			finish(it, dst, err, time.Since(t0))
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{
		JobID:     jobID,
		Total:     total,
		Succeeded: completed,
		Failed:    failed,
		Items:     items,
		Duration:  time.Since(start),
	}
	if total > 0 {
		result.SuccessRate = float64(completed) / float64(total)
	}

	log.WithFields(logrus.Fields{
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"elapsed":   result.Duration,
	}).Info("batch finished")

	return result, nil
}

// outputName builds <stem>_nobg.png under folder. Collisions overwrite.
func outputName(folder, src string) string {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(folder, stem+"_nobg.png")
}
