package service

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"city-inspect-be/internal/dto"
	"city-inspect-be/internal/entity"
	"city-inspect-be/internal/repository/contract"
	"city-inspect-be/pkg/embedding"
	"city-inspect-be/pkg/llm"
	"city-inspect-be/pkg/rerank"
	"city-inspect-be/pkg/retrieval"
	"city-inspect-be/pkg/session"
	"city-inspect-be/pkg/store"
	"city-inspect-be/pkg/taskqueue"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVision struct {
	analysis string
	err      error
}

func (f *fakeVision) Analyze(context.Context, string, string, bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.analysis, nil
}

func (f *fakeVision) Name() string { return "fake-vision" }

type fakeLLM struct {
	answer string
	err    error

	mu          sync.Mutex
	lastHistory []llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	f.lastHistory = history
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedText(_ context.Context, text string) (*embedding.Vector, error) {
	return &embedding.Vector{Values: []float32{1, 0}, Modality: store.ModalityText, Source: text}, nil
}

func (fakeEmbedder) EmbedImage(_ context.Context, image string) (*embedding.Vector, error) {
	return &embedding.Vector{Values: []float32{0, 1}, Modality: store.ModalityImage, Source: image}, nil
}

type fakeChunkRepo struct {
	mu           sync.Mutex
	byCollection map[string][]*contract.ScoredChunk
}

func (f *fakeChunkRepo) Create(context.Context, *entity.DocumentChunk) error { return nil }

func (f *fakeChunkRepo) CreateBulk(context.Context, []*entity.DocumentChunk) error { return nil }

func (f *fakeChunkRepo) Count(context.Context, string) (int64, error) { return 0, nil }

func (f *fakeChunkRepo) DeleteCollection(context.Context, string) error { return nil }

func (f *fakeChunkRepo) SearchNearest(_ context.Context, collection string, _ []float32, limit int) ([]*contract.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hits := f.byCollection[collection]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func handbookChunk(content string, distance float64) *contract.ScoredChunk {
	return &contract.ScoredChunk{
		Chunk:    &entity.DocumentChunk{Id: uuid.New(), Content: content},
		Distance: distance,
	}
}

type serviceFixture struct {
	service  IInspectService
	sessions session.Store
	queue    *taskqueue.Queue
}

func newFixture(t *testing.T, repo *fakeChunkRepo, analyzer *fakeVision, generator *fakeLLM) *serviceFixture {
	t.Helper()

	discard := log.New(io.Discard, "", 0)
	sessions := session.NewMemoryStore(time.Hour, time.Minute)

	queueCfg := taskqueue.DefaultConfig()
	queueCfg.Workers = 2
	queueCfg.RetryBudget = 2
	queueCfg.RetryBackoff = time.Millisecond
	queue := taskqueue.NewQueue(queueCfg, nil, discard)
	t.Cleanup(func() { _ = queue.Close() })

	cfg := retrieval.DefaultConfig()
	engine := retrieval.NewEngine(fakeEmbedder{}, repo, discard)
	reranker := rerank.NewReranker(rerank.NewLexicalScorer(), nil, 3, discard)

	svc := NewInspectService(
		sessions,
		queue,
		engine,
		reranker,
		analyzer,
		generator,
		cfg,
		time.Hour,
		5*time.Second,
	)
	require.NoError(t, queue.Start(context.Background()))

	return &serviceFixture{service: svc, sessions: sessions, queue: queue}
}

func defaultRepo() *fakeChunkRepo {
	cfg := retrieval.DefaultConfig()
	return &fakeChunkRepo{byCollection: map[string][]*contract.ScoredChunk{
		cfg.TextCollection: {
			handbookChunk("路面裂缝深度超过规定阈值时应立即整改", 0.1),
			handbookChunk("人行道铺装应保持平整", 0.3),
		},
		cfg.ImageCollection: {
			handbookChunk("某区路面裂缝整改案例", 0.2),
		},
	}}
}

func TestAnalyzeImageCreatesAnalyzedSession(t *testing.T) {
	fx := newFixture(t, defaultRepo(), &fakeVision{analysis: "路面出现裂缝"}, &fakeLLM{answer: "报告"})

	res, err := fx.service.AnalyzeImage(context.Background(), &dto.AnalyzeImageRequest{
		Image: "data:image/jpeg;base64,xxxx",
		Query: "裂缝严重吗",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionId)
	assert.Equal(t, "路面出现裂缝", res.VisualAnalysis)
	assert.NotEmpty(t, res.Evidence)

	sess, err := fx.sessions.Get(context.Background(), res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, store.SessionAnalyzed, sess.Status)
	assert.Equal(t, "路面出现裂缝", sess.VisualAnalysis)
}

func TestCompleteAnswerTransitionsToCompleted(t *testing.T) {
	generator := &fakeLLM{answer: "专业评估报告"}
	fx := newFixture(t, defaultRepo(), &fakeVision{analysis: "路面出现裂缝"}, generator)

	analyzed, err := fx.service.AnalyzeImage(context.Background(), &dto.AnalyzeImageRequest{
		Image: "data:image/jpeg;base64,xxxx",
	})
	require.NoError(t, err)

	res, err := fx.service.CompleteAnswer(context.Background(), &dto.CompleteAnswerRequest{
		SessionId: analyzed.SessionId,
		Query:     "如何整改",
	})
	require.NoError(t, err)
	assert.Equal(t, "专业评估报告", res.Answer)
	assert.Equal(t, analyzed.Evidence, res.Evidence)
	assert.NotEmpty(t, res.Evidence)

	sess, err := fx.sessions.Get(context.Background(), analyzed.SessionId)
	require.NoError(t, err)
	assert.Equal(t, store.SessionCompleted, sess.Status)

	generator.mu.Lock()
	defer generator.mu.Unlock()
	require.Len(t, generator.lastHistory, 2)
	assert.Equal(t, "system", generator.lastHistory[0].Role)
}

func TestCompleteAnswerUnknownSession(t *testing.T) {
	fx := newFixture(t, defaultRepo(), &fakeVision{analysis: "a"}, &fakeLLM{answer: "b"})

	_, err := fx.service.CompleteAnswer(context.Background(), &dto.CompleteAnswerRequest{
		SessionId: "missing",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrSessionExpired)
}

func TestCompleteAnswerTwiceRejected(t *testing.T) {
	fx := newFixture(t, defaultRepo(), &fakeVision{analysis: "路面出现裂缝"}, &fakeLLM{answer: "报告"})

	analyzed, err := fx.service.AnalyzeImage(context.Background(), &dto.AnalyzeImageRequest{
		Image: "data:image/jpeg;base64,xxxx",
	})
	require.NoError(t, err)

	_, err = fx.service.CompleteAnswer(context.Background(), &dto.CompleteAnswerRequest{SessionId: analyzed.SessionId})
	require.NoError(t, err)

	_, err = fx.service.CompleteAnswer(context.Background(), &dto.CompleteAnswerRequest{SessionId: analyzed.SessionId})
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestQueryCombinedPath(t *testing.T) {
	fx := newFixture(t, defaultRepo(), &fakeVision{analysis: "路面出现裂缝"}, &fakeLLM{answer: "综合报告"})

	res, err := fx.service.Query(context.Background(), &dto.QueryRequest{
		Text:  "裂缝整改要求",
		Image: "data:image/jpeg;base64,xxxx",
	})
	require.NoError(t, err)
	assert.Equal(t, "综合报告", res.Answer)
	assert.Equal(t, "路面出现裂缝", res.VisualAnalysis)
	assert.NotEmpty(t, res.Evidence)
}

func TestQueryTextOnlySkipsVision(t *testing.T) {
	analyzer := &fakeVision{err: errors.New("must not be called")}
	fx := newFixture(t, defaultRepo(), analyzer, &fakeLLM{answer: "文本报告"})

	res, err := fx.service.Query(context.Background(), &dto.QueryRequest{Text: "裂缝整改要求"})
	require.NoError(t, err)
	assert.Equal(t, "文本报告", res.Answer)
	assert.Empty(t, res.VisualAnalysis)
}

func TestQueryRejectsEmptyRequest(t *testing.T) {
	fx := newFixture(t, defaultRepo(), &fakeVision{}, &fakeLLM{})

	_, err := fx.service.Query(context.Background(), &dto.QueryRequest{})
	assert.ErrorIs(t, err, store.ErrEmptyQuery)
}

func TestQueryNoEvidenceDegradesGracefully(t *testing.T) {
	empty := &fakeChunkRepo{byCollection: map[string][]*contract.ScoredChunk{}}
	generator := &fakeLLM{err: errors.New("must not be called")}
	fx := newFixture(t, empty, &fakeVision{analysis: "墙面涂鸦"}, generator)

	res, err := fx.service.Query(context.Background(), &dto.QueryRequest{
		Image: "data:image/jpeg;base64,xxxx",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "墙面涂鸦")
	assert.Contains(t, res.Answer, "未在知识库中找到")
	assert.Empty(t, res.Evidence)
}

func TestGenerationFailureSurfacesAfterRetries(t *testing.T) {
	fx := newFixture(t, defaultRepo(), &fakeVision{analysis: "路面出现裂缝"}, &fakeLLM{err: errors.New("model overloaded")})

	_, err := fx.service.Query(context.Background(), &dto.QueryRequest{Text: "整改要求"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTaskFailed)
	assert.ErrorIs(t, err, store.ErrGenerationFailure)
}

func TestAsyncTaskLifecycle(t *testing.T) {
	fx := newFixture(t, defaultRepo(), &fakeVision{analysis: "路面出现裂缝"}, &fakeLLM{answer: "报告"})

	enq, err := fx.service.QueryAsync(context.Background(), &dto.QueryRequest{Text: "整改要求"})
	require.NoError(t, err)
	require.NotEmpty(t, enq.TaskId)

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := fx.service.TaskStatus(context.Background(), enq.TaskId)
		require.NoError(t, err)
		if status.Status == string(taskqueue.StatusFinished) {
			assert.Equal(t, 100, status.Progress)
			break
		}
		require.True(t, time.Now().Before(deadline), "task did not finish in time")
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTaskStatusUnknown(t *testing.T) {
	fx := newFixture(t, defaultRepo(), &fakeVision{}, &fakeLLM{})

	_, err := fx.service.TaskStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}
