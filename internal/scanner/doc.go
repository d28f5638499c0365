// Package scanner defines the core types and capability interfaces shared by
// the catalog scanner: stores, image references, per-image outcomes, hits and
// the browser, OCR and download boundaries the pipeline depends on.
package scanner
