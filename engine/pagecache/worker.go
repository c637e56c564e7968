package pagecache

import (
	"sync"

	"github.com/drummonds/goPresent/engine/pdfrender"
)

// renderJob is one (page, resolution) assignment for a worker.
type renderJob struct {
	page       int
	resolution float64
}

// renderResult is a worker's report back to the cache. A nil image means
// rendering or compression failed.
type renderResult struct {
	worker     int
	page       int
	resolution float64
	image      *CompressedPage
}

// renderWorker renders one page at a time on its own goroutine. It owns its
// renderer and never touches cache state; all communication happens through
// the jobs and results channels. The cache tracks which workers are busy and
// must only assign a job to an idle worker.
type renderWorker struct {
	id       int
	renderer pdfrender.Renderer
	jobs     chan renderJob
	results  chan<- renderResult
}

func newRenderWorker(id int, renderer pdfrender.Renderer, results chan<- renderResult) *renderWorker {
	return &renderWorker{
		id:       id,
		renderer: renderer,
		// Capacity one: the worker is idle whenever a job is assigned, so
		// the send in assign never blocks.
		jobs:    make(chan renderJob, 1),
		results: results,
	}
}

func (w *renderWorker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range w.jobs {
		var compressed *CompressedPage
		img, err := w.renderer.RenderPixmap(job.page, job.resolution)
		if err != nil || img == nil {
			Logger.Error("rendering page failed", "page", job.page, "resolution", job.resolution, "error", err)
		} else {
			compressed, err = NewCompressedPage(img, job.page, job.resolution)
			if err != nil {
				Logger.Warn("compressing rendered page failed", "page", job.page, "error", err)
				compressed = nil
			}
		}
		w.results <- renderResult{
			worker:     w.id,
			page:       job.page,
			resolution: job.resolution,
			image:      compressed,
		}
	}
}

// assign hands the worker its next job. The caller must know the worker is
// idle.
func (w *renderWorker) assign(job renderJob) {
	w.jobs <- job
}

// stop asks the worker to finish its current job and exit.
func (w *renderWorker) stop() {
	close(w.jobs)
}
