package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkolsari/streamrag/internal/adapter"
	"github.com/mkolsari/streamrag/internal/adapter/utils"
	"github.com/mkolsari/streamrag/internal/api"
	"github.com/mkolsari/streamrag/internal/config"
	"github.com/mkolsari/streamrag/internal/domain/commonModels"
	"github.com/mkolsari/streamrag/internal/metrics"
	"github.com/mkolsari/streamrag/internal/rag"
	"github.com/mkolsari/streamrag/internal/rag/llm"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id             string
	traceId        string
	documentName   string
	documentSource string
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func toGenerateRequest(requestData api.ChatRequest, history []commonModels.ConversationTurn) rag.GenerateRequest {
	docs := make([]commonModels.Document, 0, len(requestData.Documents))
	for _, d := range requestData.Documents {
		if d.Content == "" {
			continue
		}
		docs = append(docs, commonModels.Document{
			Id:      utils.GetNewUUID(),
			Name:    d.Name,
			Size:    len(d.Content),
			Content: d.Content,
		})
	}
	return rag.GenerateRequest{
		Message:      requestData.Message,
		History:      history,
		SystemPrompt: requestData.SystemPrompt,
		Documents:    docs,
	}
}

// ChatHandler godoc
// @Summary      Run a chat turn over the indexed documents
// @Description  Retrieves relevant chunks for the message, streams the answer back as NDJSON records: one meta record with the chat id and sources, then token records, then a done or error record.
// @Tags         Messaging
// @Accept       json
// @Produce      application/x-ndjson
// @Param        request  body      api.ChatRequest  true  "Chat message, optional chat ID, optional inline documents"
// @Success      200      {object}  api.StreamRecord "NDJSON stream of records"
// @Failure      400      {object}  api.JobResponse  "Invalid request data or chat ID"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request", "remote", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the Chat handler reader", "error", err)
		}
	}(request.Body)
	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateChatRequest(request.Context(), requestData) {
		logRH.Warn("Bad Chat Request", "error", err, "chatId", requestData.ChatID)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	ctx, cancel := context.WithTimeout(request.Context(), config.GenerationCallTimeout)
	defer cancel()

	chatID := requestData.ChatID
	if chatID == "" {
		chatID = utils.GetNewUUID()
		logRH.Debug("New Chat request", "chatID", chatID)
		handlerInstance.initNewChat(ctx, chatID)
	}

	history, err := handlerInstance.service.MessageStore.GetHistory(ctx, chatID, config.HistoryTurnLimit)
	if err != nil {
		logRH.Error("Failed to get message history", "error", err)
		history = nil
	}

	fragments, sources, err := handlerInstance.rag.Generate(ctx, toGenerateRequest(requestData, history))
	if err != nil {
		logRH.Error("Generation failed before streaming", "error", err)
		WriteErrorResponse(w, http.StatusBadGateway, chatID, "Generation backend unavailable")
		return
	}

	streamChatResponse(ctx, w, chatID, sources, fragments, requestData.Message)
}

// streamChatResponse writes the NDJSON stream: headers are committed on
// the first record, so any failure after that point is reported in-band
// as an error record.
func streamChatResponse(ctx context.Context, w http.ResponseWriter, chatID string, sources []commonModels.Source, fragments <-chan llm.Fragment, userMessage string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	rc := http.NewResponseController(w)

	writeRecord := func(record api.StreamRecord) {
		if err := encoder.Encode(record); err != nil {
			logRH.Error("Error writing stream record", "error", err)
			return
		}
		if err := rc.Flush(); err != nil {
			logRH.Debug("Flush failed, client likely gone", "error", err)
		}
	}

	writeRecord(api.StreamRecord{Type: api.RecordMeta, ChatId: chatID, Sources: sources})

	var answer strings.Builder
	for fragment := range fragments {
		if fragment.Err != nil {
			logRH.Error("Stream failed mid-generation", "error", fragment.Err)
			writeRecord(api.StreamRecord{Type: api.RecordError, Error: fragment.Err.Error()})
			return
		}
		answer.WriteString(fragment.Text)
		metrics.CountStreamedFragment()
		writeRecord(api.StreamRecord{Type: api.RecordToken, Content: fragment.Text})
	}
	if ctx.Err() != nil {
		writeRecord(api.StreamRecord{Type: api.RecordError, Error: "generation timed out"})
		return
	}

	writeRecord(api.StreamRecord{Type: api.RecordDone, Done: true})
	saveCompletedTurns(ctx, chatID, userMessage, answer.String())
}

// saveCompletedTurns persists the finished exchange. Uses a fresh
// context because the request context may be canceled the moment the
// client closes the connection after the done record.
func saveCompletedTurns(ctx context.Context, chatID string, userMessage string, answer string) {
	saveCtx, cancel := context.WithTimeout(
		context.WithValue(context.Background(), config.TRACE_ID_KEY, traceIdFrom(ctx)),
		5*time.Second,
	)
	defer cancel()

	turns := []commonModels.ConversationTurn{
		{Role: commonModels.RoleUser, Content: userMessage},
		{Role: commonModels.RoleAssistant, Content: answer},
	}
	if err := handlerInstance.service.MessageStore.AppendTurns(saveCtx, chatID, turns); err != nil {
		logRH.Error("Failed to save chat history", "error", err)
	}
}

// GetStatusHandler godoc
// @Summary      Get ingest job status
// @Description  Retrieves the current status of an ingest job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse "The current status of the job"
// @Failure      404  {object}  api.JobResponse "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, traceIdFrom(r.Context()))

	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostIngestHandler handles the uploading of documents for indexing.
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  true  "The display name of the document"
// @Param        document       formData  file    true  "The PDF, DOCX, markdown or text file to upload"
// @Success      202  {object}  api.InitJobResponse "Accepted, returns job id and status URL"
// @Failure      400  {object}  api.JobResponse "Bad Request"
// @Failure      500  {object}  api.JobResponse "Storage or Write Error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		logRH.Error("Couldn't get target directory", "err", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
		return
	}

	const maxUploadSize = 32 << 20 //32mb
	err := r.ParseMultipartForm(maxUploadSize)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	docName := r.FormValue("document_name")
	if docName == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document_name is required")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
	tempFilePath := filepath.Join(targetDir, filename)
	destinationFileWriter, err := os.Create(tempFilePath)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
		return
	}
	defer destinationFileWriter.Close()

	if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Write error")
		return
	}

	newJob := newJobData{
		id:             utils.GetNewUUID(),
		traceId:        traceIdFrom(r.Context()),
		documentName:   docName,
		documentSource: tempFilePath,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}
