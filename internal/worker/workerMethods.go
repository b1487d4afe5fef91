package worker

import (
	"context"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/mkolsari/streamrag/internal/config"
	"github.com/mkolsari/streamrag/internal/domain/commonModels"
	jobmodel "github.com/mkolsari/streamrag/internal/domain/jobModel"
	"github.com/mkolsari/streamrag/internal/metrics"
	"github.com/mkolsari/streamrag/internal/rag/ingest"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.IngestJobTimeout)
	defer cancel()

	log := logger.With("traceId", job.TraceId, "jobId", job.Id)
	log.Debug("Processing ingest job", "file", job.FileName)

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	job = ingestDocument(ctx, job)

	job.EndTime = time.Now()
	if job.Status != jobmodel.JobStatusError {
		job.Status = jobmodel.JobStatusComplete
		job.CurrentStep = jobmodel.Complete
	}
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to save final job state", "err", err)
	}
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()
}

// ingestDocument extracts the uploaded file, runs it through the pipeline
// and cleans up the temp file. Step tracking lands in the job store so
// /status/{id} shows progress.
func ingestDocument(ctx context.Context, job jobmodel.Job) jobmodel.Job {
	job.CurrentStep = jobmodel.IngestExtraction
	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	doc, err := ingest.ExtractDocument(job.FilePath, job.FileName)
	if err != nil {
		logger.Error("Extraction failed", "jobId", job.Id, "error", err)
		return failJob(job, http.StatusUnprocessableEntity, "Error extracting document content")
	}

	job.CurrentStep = jobmodel.IngestProcessing
	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	chunksBefore := _ragService.Count()
	if err := _ragService.Ingest(ctx, []commonModels.Document{doc}); err != nil {
		logger.Error("Indexing failed", "jobId", job.Id, "error", err)
		return failJob(job, http.StatusBadGateway, "Error indexing document")
	}
	job.ChunkCount = _ragService.Count() - chunksBefore

	if err := os.Remove(job.FilePath); err != nil {
		logger.Error("Error removing temp file", "path", job.FilePath, "error", err)
	}
	return job
}

func failJob(job jobmodel.Job, code int, message string) jobmodel.Job {
	job.Status = jobmodel.JobStatusError
	job.CurrentStep = jobmodel.Error
	job.Error = jobmodel.JobError{Code: code, Message: message, Retry: true}
	return job
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job status", "err", err)
	}
}
