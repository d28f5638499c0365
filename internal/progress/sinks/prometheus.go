package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/pris-scanner/internal/progress"
)

// PrometheusSink exports scanner progress as Prometheus collectors.
type PrometheusSink struct {
	runsCompleted *prometheus.CounterVec
	runRuntime    prometheus.Histogram

	storesScanned *prometheus.CounterVec
	storeImages   *prometheus.GaugeVec

	imagesProcessed *prometheus.CounterVec
	imageBytes      *prometheus.CounterVec
	imageDuration   *prometheus.HistogramVec
	hits            *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pris_runs_completed_total",
			Help: "Completed scanner runs partitioned by result.",
		}, []string{"result"}),
		runRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pris_run_duration_seconds",
			Help:    "Wall time per scanner run.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 2400},
		}),
		storesScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pris_stores_scanned_total",
			Help: "Store catalog pages processed partitioned by result.",
		}, []string{"store", "result"}),
		storeImages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pris_store_images",
			Help: "Images found on the most recent catalog page of each store.",
		}, []string{"store"}),
		imagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pris_images_processed_total",
			Help: "Images processed partitioned by store and result.",
		}, []string{"store", "result"}),
		imageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pris_image_bytes_total",
			Help: "Image bytes downloaded per store.",
		}, []string{"store"}),
		imageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pris_image_duration_seconds",
			Help:    "Download, OCR and match time per image.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"result"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pris_hits_total",
			Help: "Matched images partitioned by store and search term.",
		}, []string{"store", "term"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsCompleted,
		s.runRuntime,
		s.storesScanned,
		s.storeImages,
		s.imagesProcessed,
		s.imageBytes,
		s.imageDuration,
		s.hits,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunDone:
		s.observeRun(evt, "success")
	case progress.StageRunError:
		s.observeRun(evt, "error")
	case progress.StageStoreDone:
		s.storesScanned.WithLabelValues(evt.Store, "success").Inc()
		s.storeImages.WithLabelValues(evt.Store).Set(float64(evt.Images))
	case progress.StageStoreError:
		s.storesScanned.WithLabelValues(evt.Store, "error").Inc()
	case progress.StageImageDone:
		s.handleImage(evt)
	}
}

func (s *PrometheusSink) observeRun(evt progress.Event, result string) {
	s.runsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.runRuntime.Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) handleImage(evt progress.Event) {
	result := string(evt.Result)
	s.imagesProcessed.WithLabelValues(evt.Store, result).Inc()
	if evt.Bytes > 0 {
		s.imageBytes.WithLabelValues(evt.Store).Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.imageDuration.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if evt.Result == progress.ResultHit {
		s.hits.WithLabelValues(evt.Store, evt.Term).Inc()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
