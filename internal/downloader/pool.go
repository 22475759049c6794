package downloader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "mediagate/pkg/errors"
	"mediagate/pkg/extractor"
	"mediagate/pkg/instagram"
	"mediagate/pkg/logger"
	"mediagate/pkg/progress"
	"mediagate/pkg/storage"
)

var (
	ErrQueueFull    = errors.New("download queue is full")
	ErrPoolStopped  = errors.New("worker pool is shutting down")
	errShuttingDown = apperrors.Upstream("Server is shutting down", ErrPoolStopped)
)

// Job is a single download request
type Job struct {
	ID   string
	URL  string
	Kind instagram.Kind
}

// NewJob assigns a fresh download id
func NewJob(url string, kind instagram.Kind) Job {
	return Job{ID: uuid.NewString(), URL: url, Kind: kind}
}

// Result is reported to the observer once a job finishes
type Result struct {
	Job      Job
	Media    *extractor.Media
	File     string
	Error    error
	Duration time.Duration
}

// Publisher receives the events of each job
type Publisher interface {
	Open(downloadID string)
	Publish(ev progress.Event) bool
}

// Library records finished downloads
type Library interface {
	Name(path string) (string, error)
	WriteSidecar(meta storage.Metadata) error
}

// WorkerPool runs extraction jobs on a fixed number of workers. Every job
// publishes queued, then any number of progress events, then exactly one
// complete or error event.
type WorkerPool struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	extractor  extractor.Extractor
	events     Publisher
	library    Library
	observe    func(Result)
	logger     logger.Logger

	mu      sync.RWMutex
	stopped bool
}

// Option configures a WorkerPool
type Option func(*WorkerPool)

// WithQueueSize sets how many jobs may wait for a worker
func WithQueueSize(n int) Option {
	return func(wp *WorkerPool) {
		if n > 0 {
			wp.jobQueue = make(chan Job, n)
		}
	}
}

// WithObserver registers fn to be called with every finished job
func WithObserver(fn func(Result)) Option {
	return func(wp *WorkerPool) { wp.observe = fn }
}

func NewWorkerPool(
	numWorkers int,
	ext extractor.Extractor,
	events Publisher,
	library Library,
	log logger.Logger,
	opts ...Option,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	wp := &WorkerPool{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, numWorkers*8),
		ctx:        ctx,
		cancel:     cancel,
		extractor:  ext,
		events:     events,
		library:    library,
		observe:    func(Result) {},
		logger:     log.WithField("component", "downloader"),
	}
	for _, opt := range opts {
		opt(wp)
	}
	return wp
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	logger.LogComponentStart(wp.logger, "worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
		"queue_size":  cap(wp.jobQueue),
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop cancels running extractions, fails queued jobs and waits for the
// workers to exit
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	wp.cancel()
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	logger.LogComponentStop(wp.logger, "worker pool", "shutdown")
}

// Submit queues job without blocking. The download topic is opened and a
// queued event published before Submit returns, so a client can subscribe
// right away.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	wp.events.Open(job.ID)
	wp.events.Publish(progress.Event{
		Type:       progress.EventQueued,
		DownloadID: job.ID,
		Kind:       string(job.Kind),
	})

	select {
	case wp.jobQueue <- job:
	default:
		wp.fail(job, apperrors.Upstream("Download queue is full", ErrQueueFull))
		return ErrQueueFull
	}

	wp.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
		"download_id": job.ID,
		"kind":        job.Kind,
	})
	return nil
}

// QueueSize returns the number of jobs waiting for a worker
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}

// Workers returns the number of workers
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			wp.fail(job, errShuttingDown)
			continue
		}
		wp.observe(wp.processJob(job, id))
	}

	wp.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	wp.logger.DebugWithFields("Worker processing job", map[string]interface{}{
		"worker_id":   workerID,
		"download_id": job.ID,
	})

	media, err := wp.extractor.Extract(wp.ctx, job.URL, func(p extractor.Progress) {
		wp.events.Publish(progress.Event{
			Type:       progress.EventProgress,
			DownloadID: job.ID,
			Kind:       string(job.Kind),
			Percent:    p.Percent,
			Line:       p.Line,
		})
	})
	if err == nil {
		result.File, err = wp.library.Name(media.FilePath)
		if err != nil {
			err = apperrors.Internal("Downloaded file is outside the media directory", err)
		}
	}
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err
		wp.fail(job, err)
		return result
	}
	result.Media = media

	if err := wp.library.WriteSidecar(storage.Metadata{
		DownloadID:  job.ID,
		SourceURL:   job.URL,
		Kind:        string(job.Kind),
		MediaID:     media.ID,
		Shortcode:   instagram.Shortcode(job.URL),
		Title:       media.Title,
		Description: media.Description,
		Thumbnail:   media.Thumbnail,
		File:        result.File,
	}); err != nil {
		wp.logger.WithError(err).WarnWithFields("Failed to write metadata sidecar", map[string]interface{}{
			"download_id": job.ID,
			"file":        result.File,
		})
	}

	wp.events.Publish(progress.Event{
		Type:        progress.EventComplete,
		DownloadID:  job.ID,
		Kind:        string(job.Kind),
		Percent:     100,
		Title:       media.Title,
		Description: media.Description,
		Thumbnail:   media.Thumbnail,
		File:        result.File,
	})
	logger.LogDownload(wp.jobLogger(job).WithField("duration", result.Duration), job.ID, job.URL, string(job.Kind), nil)
	return result
}

func (wp *WorkerPool) fail(job Job, err error) {
	wp.events.Publish(progress.Event{
		Type:       progress.EventError,
		DownloadID: job.ID,
		Kind:       string(job.Kind),
		Detail:     apperrors.Detail(err),
	})
	logger.LogDownload(wp.jobLogger(job), job.ID, job.URL, string(job.Kind), err)
}

func (wp *WorkerPool) jobLogger(job Job) logger.Logger {
	if code := instagram.Shortcode(job.URL); code != "" {
		return wp.logger.WithField("shortcode", code)
	}
	return wp.logger
}
