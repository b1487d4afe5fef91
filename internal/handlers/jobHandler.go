package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkolsari/streamrag/internal/api"
	"github.com/mkolsari/streamrag/internal/config"
	"github.com/mkolsari/streamrag/internal/domain/jobModel"
	"github.com/mkolsari/streamrag/internal/job"
	"github.com/mkolsari/streamrag/internal/metrics"
	"github.com/mkolsari/streamrag/internal/rag"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
	rag     rag.Service
}

func InitJobHandler(jobService *job.Service, ragService rag.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, rag: ragService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	logJH.With("traceId", newJob.traceId, "job id", newJob.id)
	logJH.Info("To create new ingest job")
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func ValidateChatRequest(ctx context.Context, chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	if chatReq.Message == "" {
		return false
	}
	if chatReq.ChatID == "" {
		return true
	}
	return handlerInstance.service.MessageStore.ValidateChatId(ctx, chatReq.ChatID)
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.CurrentStep = jobModel.IngestInit
	_job.FileName = newJob.documentName
	_job.FilePath = newJob.documentSource

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send so the system cannot be overwhelmed
	logJH.Info("Created new ingest job")

	//ingestion involves batch extraction and embedding which can take a while,
	//so each accepted upload also wakes the dispatcher. Idle workers retire
	//on their own, so the pool shrinks back after the burst.
	atomic.AddInt64(&h.service.RequestCount, 1)
	metrics.StartDispatcherSignalCount() //metrics
	select {
	case h.service.DispatcherChannel <- true:
	default:
	}
}

func (h *JobHandler) initNewChat(ctx context.Context, chatId string) {
	err := h.service.MessageStore.InitNewChat(ctx, chatId)
	if err != nil {
		logJH.Error("Error initiating new chat", "chatId", chatId, "error", err)
		return
	}
}
