package bgcut

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor stands in for the pipeline: it fails for sources listed in
// failOn and writes an empty output file otherwise.
type fakeProcessor struct {
	failOn map[string]bool
}

func (f *fakeProcessor) ProcessFile(src, dst string, cfg Config) error {
	if f.failOn[src] {
		return errors.New("forced failure")
	}
	return os.WriteFile(dst, []byte("png"), 0o644)
}

func TestBatchExecute(t *testing.T) {
	inputs := []string{"a.jpg", "b.jpg", "c.png", "d.jpeg", "e.jpg"}
	proc := &fakeProcessor{failOn: map[string]bool{"b.jpg": true, "d.jpeg": true}}
	cfg := DefaultConfig("model.onnx")
	cfg.MaxWorkers = 3

	result, err := NewBatch(proc).Execute(context.Background(), inputs, t.TempDir(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.InDelta(t, 0.6, result.SuccessRate, 1e-9)
	assert.NotEmpty(t, result.JobID)

	require.Len(t, result.Items, 5)
	for i, item := range result.Items {
		assert.Equal(t, inputs[i], item.Source, "items must keep input order")
		if proc.failOn[item.Source] {
			assert.Equal(t, StatusFailed, item.Status())
			assert.Error(t, item.Err)
			assert.Empty(t, item.Output)
		} else {
			assert.Equal(t, StatusSucceeded, item.Status())
			assert.NoError(t, item.Err)
			assert.True(t, strings.HasSuffix(item.Output, "_nobg.png"))
		}
	}
}

func TestBatchProgressEvents(t *testing.T) {
	inputs := []string{"a.jpg", "b.jpg", "c.jpg"}
	proc := &fakeProcessor{failOn: map[string]bool{"b.jpg": true}}
	cfg := DefaultConfig("model.onnx")
	cfg.MaxWorkers = 2

	var events []Progress
	result, err := NewBatch(proc).Execute(context.Background(), inputs, t.TempDir(), cfg, func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Succeeded)

	require.Len(t, events, 3, "one event per completed item")
	last := events[len(events)-1]
	assert.Equal(t, 3, last.Total)
	assert.Equal(t, 3, last.Completed+last.Failed)
	assert.InDelta(t, 100.0, last.Percentage, 1e-9)
	assert.NotEmpty(t, last.CurrentFile)
	assert.GreaterOrEqual(t, last.Elapsed, time.Duration(0))
}

func TestBatchAllFailuresStillReturnsResult(t *testing.T) {
	inputs := []string{"x.jpg", "y.jpg"}
	proc := &fakeProcessor{failOn: map[string]bool{"x.jpg": true, "y.jpg": true}}

	result, err := NewBatch(proc).Execute(context.Background(), inputs, t.TempDir(), DefaultConfig("m.onnx"), nil)
	require.NoError(t, err, "total failure is data, not an error")
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 0, result.Succeeded)
	assert.Zero(t, result.SuccessRate)
}

func TestBatchOutputNaming(t *testing.T) {
	out := t.TempDir()
	assert.Equal(t, filepath.Join(out, "photo_nobg.png"), outputName(out, "/some/dir/photo.jpg"))
	assert.Equal(t, filepath.Join(out, "scan_nobg.png"), outputName(out, "scan.png"))

	// Collisions overwrite rather than deduplicate.
	proc := &fakeProcessor{}
	cfg := DefaultConfig("m.onnx")
	_, err := NewBatch(proc).Execute(context.Background(), []string{"a/img.jpg", "b/img.png"}, out, cfg, nil)
	require.NoError(t, err)
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBatchCreatesOutputFolder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "results")
	_, err := NewBatch(&fakeProcessor{}).Execute(context.Background(), []string{"a.jpg"}, out, DefaultConfig("m.onnx"), nil)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBatchCancellationBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := []string{"a.jpg", "b.jpg", "c.jpg"}
	result, err := NewBatch(&fakeProcessor{}).Execute(ctx, inputs, t.TempDir(), DefaultConfig("m.onnx"), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Failed)
	for _, item := range result.Items {
		assert.Equal(t, StatusFailed, item.Status())
		assert.ErrorIs(t, item.Err, context.Canceled)
	}
}

func TestBatchEmptyInput(t *testing.T) {
	result, err := NewBatch(&fakeProcessor{}).Execute(context.Background(), nil, t.TempDir(), DefaultConfig("m.onnx"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Zero(t, result.SuccessRate)
	assert.Empty(t, result.Items)
}
