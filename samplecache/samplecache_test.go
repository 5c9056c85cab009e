package samplecache_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verdantlab/phenosample/phenomodel"
	"github.com/verdantlab/phenosample/samplecache"
)

func TestRoundTrip(t *testing.T) {
	set := phenomodel.SampleSet{
		Region:    "east-block",
		EPSG:      3857,
		CreatedAt: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		Points: []phenomodel.SamplePoint{
			{ID: 1, X: 100.5, Y: 200.25},
			{ID: 2, X: -300, Y: 4000},
			{ID: 3, X: 0, Y: 0},
		},
	}

	var buf bytes.Buffer
	if err := samplecache.Save(&buf, set); err != nil {
		t.Fatalf("unexpected save error: %s", err.Error())
	}

	got, err := samplecache.Load(&buf)
	if err != nil {
		t.Fatalf("unexpected load error: %s", err.Error())
	}

	if got.Region != set.Region || got.EPSG != set.EPSG {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(set.CreatedAt) {
		t.Fatalf("created at mismatch: %s", got.CreatedAt)
	}
	if len(got.Points) != len(set.Points) {
		t.Fatalf("expected %d points, got %d", len(set.Points), len(got.Points))
	}
	for i := range set.Points {
		if got.Points[i] != set.Points[i] {
			t.Fatalf("point %d mismatch: %v vs %v", i, got.Points[i], set.Points[i])
		}
	}
}

func TestRejectsForeignFile(t *testing.T) {
	_, err := samplecache.Load(bytes.NewReader([]byte("GARBAGE DATA, NOT A SAMPLE SET")))
	if err == nil {
		t.Fatal("expected error for foreign file")
	}
}

func TestRejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := samplecache.Save(&buf, phenomodel.SampleSet{Region: "test"}); err != nil {
		t.Fatalf("unexpected save error: %s", err.Error())
	}

	// bump the little-endian version field right after the magic bytes
	data := buf.Bytes()
	data[5] = 0xFF

	_, err := samplecache.Load(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected error for unknown format version")
	}
	if !strings.Contains(err.Error(), "unsupported format version") {
		t.Fatalf("unexpected error: %s", err.Error())
	}
}

func TestRejectsTruncated(t *testing.T) {
	_, err := samplecache.Load(bytes.NewReader([]byte("PHS")))
	if err == nil {
		t.Fatal("expected error for truncated file")
	}
}
