package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pris-scanner/internal/progress"
)

func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	now := time.Now()
	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart},
		{RunID: runID, TS: now, Stage: progress.StageStoreDone, Store: "kiwi", Images: 3},
		{
			RunID: runID, TS: now, Stage: progress.StageImageDone,
			Store: "kiwi", File: "kiwi_img1.png", Result: progress.ResultHit, Term: "red bull",
			Bytes: 2048, Dur: 300 * time.Millisecond,
		},
		{RunID: runID, TS: now, Stage: progress.StageImageDone, Store: "kiwi", File: "kiwi_img2.png", Result: progress.ResultFailed},
		{RunID: runID, TS: now, Stage: progress.StageImageDone, Store: "kiwi", File: "kiwi_img3.png", Result: progress.ResultMiss, Bytes: 10},
		{RunID: runID, TS: now, Stage: progress.StageStoreError, Store: "meny"},
		{RunID: runID, TS: now, Stage: progress.StageRunDone, Dur: 12 * time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.storesScanned.WithLabelValues("kiwi", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.storesScanned.WithLabelValues("meny", "error")))
	require.Equal(t, 3.0, testutil.ToFloat64(sink.storeImages.WithLabelValues("kiwi")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.imagesProcessed.WithLabelValues("kiwi", "hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.imagesProcessed.WithLabelValues("kiwi", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.imagesProcessed.WithLabelValues("kiwi", "miss")))
	require.InDelta(t, 2058.0, testutil.ToFloat64(sink.imageBytes.WithLabelValues("kiwi")), 1e-9)
	require.Equal(t, 1.0, testutil.ToFloat64(sink.hits.WithLabelValues("kiwi", "red bull")))
	require.Equal(t, 1, testutil.CollectAndCount(sink.imageDuration, "pris_image_duration_seconds"))
	require.Equal(t, 1, testutil.CollectAndCount(sink.runRuntime, "pris_run_duration_seconds"))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
