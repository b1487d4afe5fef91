package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkolsari/streamrag/internal/config"
	"github.com/mkolsari/streamrag/internal/domain/commonModels"
	"github.com/mkolsari/streamrag/internal/domain/jobModel"
	"github.com/mkolsari/streamrag/internal/job"
	"github.com/mkolsari/streamrag/internal/rag"
	"github.com/mkolsari/streamrag/internal/rag/llm"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

// MockRagService tracks ingested documents
type MockRagService struct {
	IngestedCount int32
}

func (m *MockRagService) Ingest(ctx context.Context, docs []commonModels.Document) error {
	atomic.AddInt32(&m.IngestedCount, int32(len(docs)))
	return nil
}

func (m *MockRagService) Retrieve(ctx context.Context, query string, k int) (commonModels.RetrievalResult, error) {
	return commonModels.RetrievalResult{}, nil
}

func (m *MockRagService) Generate(ctx context.Context, req rag.GenerateRequest) (<-chan llm.Fragment, []commonModels.Source, error) {
	return nil, nil, nil
}

func (m *MockRagService) Count() int {
	return int(atomic.LoadInt32(&m.IngestedCount))
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

type MockMessageStore struct{}

func (m *MockMessageStore) ValidateChatId(ctx context.Context, id string) bool { return true }
func (m *MockMessageStore) InitNewChat(ctx context.Context, id string) error   { return nil }
func (m *MockMessageStore) AppendTurns(ctx context.Context, chatId string, turns []commonModels.ConversationTurn) error {
	return nil
}
func (m *MockMessageStore) GetHistory(ctx context.Context, chatId string, limit int) ([]commonModels.ConversationTurn, error) {
	return nil, nil
}

func writeTempDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWorkerPool_Flow(t *testing.T) {
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          &MockJobStore{},
		MessageStore:      &MockMessageStore{},
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true

		time.Sleep(50 * time.Millisecond)

		count := atomic.LoadInt64(&currentWorkerCount)
		if count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker ingests an uploaded file", func(t *testing.T) {
		var lastSaved jobModel.Job
		var mu sync.Mutex
		jobSvc.JobStore = &MockJobStore{
			OnSaveJob: func(ctx context.Context, j jobModel.Job) error {
				mu.Lock()
				lastSaved = j
				mu.Unlock()
				return nil
			},
		}

		testJob := jobModel.Job{
			Id:       "test-1",
			FileName: "upload.md",
			FilePath: writeTempDoc(t, "## Intro\nhello worker"),
		}
		jobSvc.JobChannel <- testJob

		time.Sleep(100 * time.Millisecond)

		if got := atomic.LoadInt32(&mockRag.IngestedCount); got != 1 {
			t.Errorf("Expected 1 document ingested, got %d", got)
		}
		mu.Lock()
		finalStatus := lastSaved.Status
		mu.Unlock()
		if finalStatus != jobModel.JobStatusComplete {
			t.Errorf("Expected final status COMPLETE, got %s", finalStatus)
		}
	})

	t.Run("Missing file fails the job", func(t *testing.T) {
		var lastSaved jobModel.Job
		var mu sync.Mutex
		jobSvc.JobStore = &MockJobStore{
			OnSaveJob: func(ctx context.Context, j jobModel.Job) error {
				mu.Lock()
				lastSaved = j
				mu.Unlock()
				return nil
			},
		}

		jobSvc.JobChannel <- jobModel.Job{
			Id:       "test-2",
			FileName: "ghost.pdf",
			FilePath: "/nonexistent/ghost.pdf",
		}

		time.Sleep(100 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if lastSaved.Status != jobModel.JobStatusError {
			t.Errorf("Expected status Error, got %s", lastSaved.Status)
		}
		if lastSaved.Error.Message == "" {
			t.Error("Expected an error message on the failed job")
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the full idle timeout")
	}

	logger = logger_i.NewLogger("TestWorkerPool")
	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job),
	}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	// Two workers so one is above the floor and may retire
	atomic.StoreInt64(&currentWorkerCount, 0)
	createWorker()
	createWorker()
	time.Sleep(config.IdleWorkerTimeout + 100*time.Millisecond)

	count := atomic.LoadInt64(&currentWorkerCount)
	if count >= 2 {
		t.Errorf("Expected idle worker to retire, but count is %d", count)
	}
}
