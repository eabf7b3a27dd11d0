package chunk

import (
	"fmt"
	"runtime"
	"sync"
)

// encodeJob is one chunk's encode work, addressed by its position in
// the Plan order so results can be reassembled deterministically
// regardless of which worker finishes first.
type encodeJob struct {
	index   int
	samples []float64
	c       Chunk
}

type encodeResult struct {
	index int
	bytes []byte
}

// RunEncode plans a chunk grid over a (dx, dy, dz) volume and encodes
// each chunk independently, in parallel across numThreads workers. It
// returns the chunk-stream bytes in Plan order, one per chunk. Each
// worker owns one wavelet engine reused across every chunk it handles.
func RunEncode(volume []float64, dx, dy, dz, cx, cy, cz, numThreads int, opts PipelineOptions) ([]Chunk, [][]byte) {
	chunks := Plan(dx, dy, dz, cx, cy, cz)

	jobs := make([]encodeJob, len(chunks))
	for i, c := range chunks {
		jobs[i] = encodeJob{index: i, samples: Extract(volume, dx, dy, c), c: c}
	}

	out := make([][]byte, len(chunks))

	if numThreads <= 0 {
		numThreads = runtime.GOMAXPROCS(0)
	}
	if len(jobs) <= 4 || numThreads == 1 {
		w := newWorker()
		for _, job := range jobs {
			out[job.index] = w.encodeChunk(job.samples, job.c.Lx, job.c.Ly, job.c.Lz, opts)
		}
		return chunks, out
	}

	numWorkers := numThreads
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	jobChan := make(chan encodeJob, len(jobs))
	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)

	resultChan := make(chan encodeResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := newWorker()
			for job := range jobChan {
				encoded := w.encodeChunk(job.samples, job.c.Lx, job.c.Ly, job.c.Lz, opts)
				resultChan <- encodeResult{index: job.index, bytes: encoded}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for r := range resultChan {
		out[r.index] = r.bytes
	}

	return chunks, out
}

type decodeJob struct {
	index int
	data  []byte
	c     Chunk
}

type decodeResult struct {
	index   int
	samples []float64
	err     error
}

// RunDecode reverses RunEncode: given the chunk-stream bytes (in Plan
// order, as produced by RunEncode) and the same grid parameters, it
// decodes every chunk in parallel and scatters the results back into a
// dense (dx, dy, dz) volume.
func RunDecode(streams [][]byte, dx, dy, dz, cx, cy, cz, numThreads int, opts PipelineOptions) ([]float64, error) {
	chunks := Plan(dx, dy, dz, cx, cy, cz)
	if len(chunks) != len(streams) {
		return nil, fmt.Errorf("chunk: expected %d chunk streams, got %d", len(chunks), len(streams))
	}

	jobs := make([]decodeJob, len(chunks))
	for i, c := range chunks {
		jobs[i] = decodeJob{index: i, data: streams[i], c: c}
	}

	results := make([][]float64, len(chunks))

	if numThreads <= 0 {
		numThreads = runtime.GOMAXPROCS(0)
	}
	if len(jobs) <= 4 || numThreads == 1 {
		w := newWorker()
		for _, job := range jobs {
			samples, err := decodeChunk(w, job.data, job.c.Lx, job.c.Ly, job.c.Lz, opts)
			if err != nil {
				return nil, fmt.Errorf("chunk: decoding chunk %d: %w", job.index, err)
			}
			results[job.index] = samples
		}
	} else {
		numWorkers := numThreads
		if numWorkers > len(jobs) {
			numWorkers = len(jobs)
		}

		jobChan := make(chan decodeJob, len(jobs))
		for _, job := range jobs {
			jobChan <- job
		}
		close(jobChan)

		resultChan := make(chan decodeResult, len(jobs))

		var wg sync.WaitGroup
		for i := 0; i < numWorkers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := newWorker()
				for job := range jobChan {
					samples, err := decodeChunk(w, job.data, job.c.Lx, job.c.Ly, job.c.Lz, opts)
					resultChan <- decodeResult{index: job.index, samples: samples, err: err}
				}
			}()
		}

		go func() {
			wg.Wait()
			close(resultChan)
		}()

		for r := range resultChan {
			if r.err != nil {
				return nil, fmt.Errorf("chunk: decoding chunk %d: %w", r.index, r.err)
			}
			results[r.index] = r.samples
		}
	}

	volume := make([]float64, dx*dy*dz)
	for i, c := range chunks {
		Scatter(volume, dx, dy, c, results[i])
	}
	return volume, nil
}
