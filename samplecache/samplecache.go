// Package samplecache persists sample sets in a compact binary file so a
// sampling run can be shared between the extract, fit and serve stages.
//
// Layout: magic bytes, little-endian format version, then a
// zstd-compressed gob payload.
package samplecache

import (
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/verdantlab/phenosample/phenomodel"
)

var magicBytes = []byte("PHSMP")

const formatVersion uint32 = 1

func Save(w io.Writer, set phenomodel.SampleSet) error {
	if _, err := w.Write(magicBytes); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(zw).Encode(set); err != nil {
		zw.Close()
		return fmt.Errorf("encoding sample set: %w", err)
	}
	return zw.Close()
}

func Load(r io.Reader) (phenomodel.SampleSet, error) {
	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(r, magic); err != nil {
		return phenomodel.SampleSet{}, fmt.Errorf("reading magic bytes: %w", err)
	}
	if string(magic) != string(magicBytes) {
		return phenomodel.SampleSet{}, fmt.Errorf("not a sample set file")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return phenomodel.SampleSet{}, fmt.Errorf("reading format version: %w", err)
	}
	if version != formatVersion {
		return phenomodel.SampleSet{}, fmt.Errorf("unsupported format version: %d", version)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return phenomodel.SampleSet{}, err
	}
	defer zr.Close()

	var set phenomodel.SampleSet
	if err := gob.NewDecoder(zr).Decode(&set); err != nil {
		return phenomodel.SampleSet{}, fmt.Errorf("decoding sample set: %w", err)
	}
	return set, nil
}

func SaveFile(path string, set phenomodel.SampleSet) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return Save(file, set)
}

func LoadFile(path string) (phenomodel.SampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return phenomodel.SampleSet{}, err
	}
	defer file.Close()
	return Load(file)
}
