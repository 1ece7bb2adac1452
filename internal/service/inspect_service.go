package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"city-inspect-be/internal/constant"
	"city-inspect-be/internal/dto"
	"city-inspect-be/pkg/llm"
	"city-inspect-be/pkg/prompt"
	"city-inspect-be/pkg/rerank"
	"city-inspect-be/pkg/retrieval"
	"city-inspect-be/pkg/session"
	"city-inspect-be/pkg/store"
	"city-inspect-be/pkg/taskqueue"
	"city-inspect-be/pkg/vision"
)

// Task kinds routed through the queue.
const (
	TaskAnalyzeImage   = "analyze_image"
	TaskCompleteAnswer = "complete_answer"
	TaskQuery          = "query"
)

// IInspectService defines the inspection workflow interface. The
// non-Async variants enqueue and then wait for the worker, so callers
// get blocking semantics over the same queue.
type IInspectService interface {
	AnalyzeImage(ctx context.Context, request *dto.AnalyzeImageRequest) (*dto.AnalyzeImageResponse, error)
	AnalyzeImageAsync(ctx context.Context, request *dto.AnalyzeImageRequest) (*dto.EnqueueTaskResponse, error)
	CompleteAnswer(ctx context.Context, request *dto.CompleteAnswerRequest) (*dto.CompleteAnswerResponse, error)
	CompleteAnswerAsync(ctx context.Context, request *dto.CompleteAnswerRequest) (*dto.EnqueueTaskResponse, error)
	Query(ctx context.Context, request *dto.QueryRequest) (*dto.QueryResponse, error)
	QueryAsync(ctx context.Context, request *dto.QueryRequest) (*dto.EnqueueTaskResponse, error)
	TaskStatus(ctx context.Context, taskId string) (*dto.TaskStatusResponse, error)
	CancelTask(ctx context.Context, taskId string) error
}

type inspectService struct {
	sessions     session.Store
	queue        *taskqueue.Queue
	engine       *retrieval.Engine
	reranker     *rerank.Reranker
	analyzer     vision.VisionAnalyzer
	llmProvider  llm.LLMProvider
	retrievalCfg retrieval.Config
	sessionTTL   time.Duration
	waitTimeout  time.Duration
	logger       *log.Logger
}

// NewInspectService wires the inspection pipeline and registers its
// task handlers on the queue. The caller starts the queue.
func NewInspectService(
	sessions session.Store,
	queue *taskqueue.Queue,
	engine *retrieval.Engine,
	reranker *rerank.Reranker,
	analyzer vision.VisionAnalyzer,
	llmProvider llm.LLMProvider,
	retrievalCfg retrieval.Config,
	sessionTTL time.Duration,
	waitTimeout time.Duration,
) IInspectService {
	s := &inspectService{
		sessions:     sessions,
		queue:        queue,
		engine:       engine,
		reranker:     reranker,
		analyzer:     analyzer,
		llmProvider:  llmProvider,
		retrievalCfg: retrievalCfg,
		sessionTTL:   sessionTTL,
		waitTimeout:  waitTimeout,
		logger:       initInspectLogger(),
	}

	queue.Register(TaskAnalyzeImage, s.handleAnalyzeImage)
	queue.Register(TaskCompleteAnswer, s.handleCompleteAnswer)
	queue.Register(TaskQuery, s.handleQuery)
	return s
}

func initInspectLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "inspect_rag.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[INSPECT-RAG] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

func (s *inspectService) AnalyzeImage(ctx context.Context, request *dto.AnalyzeImageRequest) (*dto.AnalyzeImageResponse, error) {
	result, err := s.runSync(ctx, TaskAnalyzeImage, request)
	if err != nil {
		return nil, err
	}
	return result.(*dto.AnalyzeImageResponse), nil
}

func (s *inspectService) AnalyzeImageAsync(ctx context.Context, request *dto.AnalyzeImageRequest) (*dto.EnqueueTaskResponse, error) {
	return s.enqueue(ctx, TaskAnalyzeImage, request)
}

func (s *inspectService) CompleteAnswer(ctx context.Context, request *dto.CompleteAnswerRequest) (*dto.CompleteAnswerResponse, error) {
	result, err := s.runSync(ctx, TaskCompleteAnswer, request)
	if err != nil {
		return nil, err
	}
	return result.(*dto.CompleteAnswerResponse), nil
}

func (s *inspectService) CompleteAnswerAsync(ctx context.Context, request *dto.CompleteAnswerRequest) (*dto.EnqueueTaskResponse, error) {
	return s.enqueue(ctx, TaskCompleteAnswer, request)
}

func (s *inspectService) Query(ctx context.Context, request *dto.QueryRequest) (*dto.QueryResponse, error) {
	if request.Text == "" && request.Image == "" {
		return nil, store.ErrEmptyQuery
	}
	result, err := s.runSync(ctx, TaskQuery, request)
	if err != nil {
		return nil, err
	}
	return result.(*dto.QueryResponse), nil
}

func (s *inspectService) QueryAsync(ctx context.Context, request *dto.QueryRequest) (*dto.EnqueueTaskResponse, error) {
	if request.Text == "" && request.Image == "" {
		return nil, store.ErrEmptyQuery
	}
	return s.enqueue(ctx, TaskQuery, request)
}

func (s *inspectService) TaskStatus(_ context.Context, taskId string) (*dto.TaskStatusResponse, error) {
	task, err := s.queue.Status(taskId)
	if err != nil {
		return nil, err
	}
	return &dto.TaskStatusResponse{
		TaskId:     task.ID,
		Status:     string(task.Status),
		Progress:   task.Progress,
		Attempts:   task.Attempts,
		Result:     task.Result,
		Error:      task.Error,
		EnqueuedAt: task.EnqueuedAt,
		FinishedAt: task.FinishedAt,
	}, nil
}

func (s *inspectService) CancelTask(ctx context.Context, taskId string) error {
	return s.queue.Cancel(ctx, taskId)
}

func (s *inspectService) enqueue(ctx context.Context, kind string, payload interface{}) (*dto.EnqueueTaskResponse, error) {
	taskId, err := s.queue.Enqueue(ctx, kind, payload)
	if err != nil {
		return nil, err
	}
	return &dto.EnqueueTaskResponse{TaskId: taskId}, nil
}

func (s *inspectService) runSync(ctx context.Context, kind string, payload interface{}) (interface{}, error) {
	taskId, err := s.queue.Enqueue(ctx, kind, payload)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()

	task, err := s.queue.Wait(waitCtx, taskId, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if task.Status == taskqueue.StatusCancelled {
		return nil, fmt.Errorf("task %s was cancelled", taskId)
	}
	return task.Result, nil
}

// handleAnalyzeImage is phase 1: vision analysis, dual-path retrieval,
// rerank, and an ANALYZED session holding the intermediate state.
func (s *inspectService) handleAnalyzeImage(ctx context.Context, payload json.RawMessage, progress func(int)) (interface{}, error) {
	var req dto.AnalyzeImageRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, taskqueue.Permanent(fmt.Errorf("invalid analyze payload: %w", err))
	}
	if req.Image == "" {
		return nil, taskqueue.Permanent(store.ErrEmptyQuery)
	}

	progress(10)
	analysis, err := s.analyzeVision(ctx, req.Image, req.UseStructuredOutput)
	if err != nil {
		return nil, err
	}

	progress(40)
	evidence, err := s.retrieve(ctx, searchText(req.Query, analysis), req.Image)
	if err != nil {
		return nil, err
	}

	progress(80)
	sess := session.New(store.Query{Text: req.Query, Image: req.Image}, s.sessionTTL, time.Now())
	sess.VisualAnalysis = analysis
	sess.Evidence = evidence
	if err := session.Advance(sess, store.SessionAnalyzed); err != nil {
		return nil, taskqueue.Permanent(err)
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.Printf("[INFO] Analyzed image session=%s evidence=%d", sess.ID, len(evidence))

	return &dto.AnalyzeImageResponse{
		SessionId:      sess.ID,
		VisualAnalysis: analysis,
		Evidence:       toEvidenceDTO(evidence),
		ExpiresAt:      sess.ExpiresAt,
	}, nil
}

// handleCompleteAnswer is phase 2: prompt assembly and answer
// generation against the session's stored analysis and evidence.
func (s *inspectService) handleCompleteAnswer(ctx context.Context, payload json.RawMessage, progress func(int)) (interface{}, error) {
	var req dto.CompleteAnswerRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, taskqueue.Permanent(fmt.Errorf("invalid complete payload: %w", err))
	}

	sess, err := s.sessions.Get(ctx, req.SessionId)
	if err != nil {
		return nil, taskqueue.Permanent(err)
	}
	if sess.Status != store.SessionAnalyzed {
		return nil, taskqueue.Permanent(fmt.Errorf("%w: session is %s", session.ErrInvalidTransition, sess.Status))
	}

	progress(30)
	query := req.Query
	if query == "" {
		query = sess.Query.Text
	}

	answer, err := s.generateAnswer(ctx, sess.VisualAnalysis, query, sess.Evidence)
	if err != nil {
		return nil, err
	}

	progress(90)
	if _, err := s.sessions.Update(ctx, sess.ID, func(stored *store.Session) error {
		return session.Advance(stored, store.SessionCompleted)
	}); err != nil {
		if errors.Is(err, session.ErrInvalidTransition) || errors.Is(err, store.ErrSessionExpired) {
			return nil, taskqueue.Permanent(err)
		}
		return nil, err
	}

	s.logger.Printf("[INFO] Completed session=%s answer_len=%d", sess.ID, len(answer))

	return &dto.CompleteAnswerResponse{
		SessionId: sess.ID,
		Answer:    answer,
		Evidence:  toEvidenceDTO(sess.Evidence),
	}, nil
}

// handleQuery runs both phases back to back without a client-visible
// session.
func (s *inspectService) handleQuery(ctx context.Context, payload json.RawMessage, progress func(int)) (interface{}, error) {
	var req dto.QueryRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, taskqueue.Permanent(fmt.Errorf("invalid query payload: %w", err))
	}
	if req.Text == "" && req.Image == "" {
		return nil, taskqueue.Permanent(store.ErrEmptyQuery)
	}

	var analysis string
	if req.Image != "" {
		progress(10)
		var err error
		analysis, err = s.analyzeVision(ctx, req.Image, req.UseStructuredOutput)
		if err != nil {
			return nil, err
		}
	}

	progress(40)
	evidence, err := s.retrieve(ctx, searchText(req.Text, analysis), req.Image)
	if err != nil {
		return nil, err
	}

	progress(70)
	answer, err := s.generateAnswer(ctx, analysis, req.Text, evidence)
	if err != nil {
		return nil, err
	}

	return &dto.QueryResponse{
		Answer:         answer,
		VisualAnalysis: analysis,
		Evidence:       toEvidenceDTO(evidence),
	}, nil
}

// analyzeVision delegates to the analyzer, which owns the
// structured-to-labeled rendering.
func (s *inspectService) analyzeVision(ctx context.Context, image string, structured bool) (string, error) {
	analysis, err := s.analyzer.Analyze(ctx, image, constant.VisionAnalysisPrompt, structured)
	if err != nil {
		return "", fmt.Errorf("vision analysis failed: %w", err)
	}
	return analysis, nil
}

func (s *inspectService) retrieve(ctx context.Context, queryText string, image string) ([]store.EvidenceItem, error) {
	fused, err := s.engine.Search(ctx, queryText, image, s.retrievalCfg)
	if err != nil {
		if errors.Is(err, store.ErrEmptyQuery) {
			return nil, taskqueue.Permanent(err)
		}
		return nil, err
	}

	evidence, err := s.reranker.Rerank(ctx, queryText, fused)
	if err != nil {
		return nil, fmt.Errorf("%w: rerank: %v", store.ErrRetrievalFailure, err)
	}
	return evidence, nil
}

// generateAnswer produces the inspection report. When retrieval came
// back with nothing but the image was analyzed, the answer degrades to
// the analysis plus a consult-a-professional notice instead of failing.
func (s *inspectService) generateAnswer(ctx context.Context, analysis string, query string, evidence []store.EvidenceItem) (string, error) {
	if len(evidence) == 0 && analysis != "" {
		return prompt.NoEvidenceAnswer(analysis), nil
	}

	userPrompt := prompt.NewReportBuilder(analysis, query, evidence).Build()
	answer, err := s.llmProvider.Chat(ctx, []llm.Message{
		{Role: "system", Content: constant.ReportSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrGenerationFailure, err)
	}
	return answer, nil
}

// searchText resolves the retrieval query: the user question leads,
// the visual analysis supplies the semantic signal when present.
func searchText(query string, analysis string) string {
	switch {
	case query == "":
		return analysis
	case analysis == "":
		return query
	default:
		return query + "\n" + analysis
	}
}

func toEvidenceDTO(evidence []store.EvidenceItem) []dto.EvidenceItem {
	out := make([]dto.EvidenceItem, 0, len(evidence))
	for _, item := range evidence {
		out = append(out, dto.EvidenceItem{
			Rank:        item.Rank,
			Modality:    string(item.Modality),
			Content:     item.Content,
			Source:      item.SourcePath,
			RerankScore: item.RerankScore,
			FusionScore: item.FusionScore,
		})
	}
	return out
}
