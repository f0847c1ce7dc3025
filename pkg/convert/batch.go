package convert

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/clemoune/spec2nii/pkg/dicom"
	"github.com/clemoune/spec2nii/pkg/header"
)

// Source yields the decoded acquisition for one input path. The zero
// value of BatchOptions reads from disk.
type Source func(path string) (*dicom.Acquisition, error)

// BatchOptions control a batch conversion.
type BatchOptions struct {
	// NameOverride replaces the protocol-derived output stem.
	NameOverride string

	// DimTag annotates the combined trailing axis, combine path only.
	DimTag string

	// Workers caps the conversion goroutines. Zero means one per CPU.
	Workers int

	// Clock stamps the conversion metadata. Nil means wall clock.
	Clock header.Clock

	// Logger receives per-file progress. Nil silences it.
	Logger *slog.Logger

	// Source decodes input paths. Nil reads DICOM files from disk.
	Source Source
}

// ConvertBatch decodes and converts every input file, then applies the
// combine decision across the whole batch. The first failing file, in
// input order, aborts the batch with its path attached; no partial
// output is produced.
func ConvertBatch(paths []string, opts BatchOptions) ([]*Output, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	source := opts.Source
	if source == nil {
		source = dicom.Load
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))
	perWorker := (len(paths) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			start := workerID * perWorker
			end := start + perWorker
			if end > len(paths) {
				end = len(paths)
			}
			for i := start; i < end; i++ {
				log.Info("converting file", "file", paths[i])
				acq, err := source(paths[i])
				if err != nil {
					errs[i] = fmt.Errorf("failed to read %s: %w", paths[i], err)
					continue
				}
				res, err := ConvertFile(acq, opts.Clock)
				if err != nil {
					errs[i] = fmt.Errorf("failed to convert %s: %w", paths[i], err)
					continue
				}
				results[i] = res
			}
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	outputs, err := Combine(results, opts.DimTag, opts.NameOverride)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 1 {
		log.Info("batch combined into one output", "name", outputs[0].Name, "files", len(paths))
	} else {
		log.Info("batch kept as separate outputs", "outputs", len(outputs))
	}
	return outputs, nil
}
