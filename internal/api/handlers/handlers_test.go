package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/jobs"
	"github.com/dvloznov/fintrack-ai/internal/jobs/inmemory"
	"github.com/dvloznov/fintrack-ai/internal/llm"
	"github.com/dvloznov/fintrack-ai/internal/logger"
	"github.com/dvloznov/fintrack-ai/internal/pipeline"
	"github.com/dvloznov/fintrack-ai/internal/store"
	"github.com/dvloznov/fintrack-ai/internal/store/memory"
)

const statement = "Account: Checking\n2025-03-03 UBER TRIP -18.40\n2025-03-04 STARBUCKS #12 -4.10\n2025-03-05 Online Transfer to Savings -300.00\n"

type testServer struct {
	handler  http.Handler
	repo     *memory.Store
	jobStore *inmemory.Store
	storage  *memStorage
}

type memStorage struct {
	objects map[string][]byte
}

func (m *memStorage) Upload(_ context.Context, bucket, object, _ string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects["gs://"+bucket+"/"+object] = data
	return nil
}

func (m *memStorage) Fetch(_ context.Context, uri string) ([]byte, error) {
	data, ok := m.objects[uri]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func newTestServer(t *testing.T, withGCS bool) *testServer {
	t.Helper()

	log := logger.NewWithWriter(io.Discard)
	repo := memory.New()
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, jobStore)

	ts := &testServer{repo: repo, jobStore: jobStore}
	deps := Deps{
		Repo:      repo,
		Publisher: queue,
		Jobs:      jobStore,
		Info:      ConfigInfo{LLMType: "heuristic", Storage: "memory"},
		Log:       log,
	}
	if withGCS {
		ts.storage = &memStorage{objects: map[string][]byte{}}
		deps.Storage = ts.storage
		deps.Bucket = "statements"
	}
	svc := pipeline.NewService(llm.NewHeuristicProvider(), repo, deps.Storage, pipeline.Options{MaxAttempts: 2})
	deps.Service = svc

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queue.Start(ctx, svc.HandleJob))
	t.Cleanup(func() {
		cancel()
		_ = queue.Close()
	})

	ts.handler = NewRouter(deps)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (ts *testServer) seed(t *testing.T) []store.TransactionRecord {
	t.Helper()
	recs, err := ts.repo.InsertTransactions(context.Background(), "doc", []domain.Transaction{
		{Date: "2025-03-03", Description: "UBER TRIP", Amount: -18.4, Type: domain.TypeExpense, Category: "Transport", Merchant: "Uber Trip", AccountName: "Checking"},
		{Date: "2025-03-04", Description: "STARBUCKS #12", Amount: -4.1, Type: domain.TypeExpense, Category: "Food", Merchant: "Starbucks", AccountName: "Checking"},
		{Date: "2025-04-05", Description: "Online Transfer to Savings", Amount: -300, Type: domain.TypeExpense, Category: "Transfer", Merchant: "Online Transfer To Savings", AccountName: "Checking", IsTransfer: true, PotentialTransfer: true},
	})
	require.NoError(t, err)
	return recs
}

func TestHealthAndConfig(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = ts.do(t, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info ConfigInfo
	decode(t, rec, &info)
	assert.Equal(t, "heuristic", info.LLMType)
	assert.False(t, info.UploadsToGCS)
}

func TestIngest_ConcurrentRequests(t *testing.T) {
	ts := newTestServer(t, false)

	const n = 40
	codes := make([]int, n)
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewBufferString(`{"text":"2025-03-04 STARBUCKS #12 -4.10"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)
			codes[i] = rec.Code

			var body map[string]string
			if json.Unmarshal(rec.Body.Bytes(), &body) == nil {
				ids[i] = body["job_id"]
				assert.Equal(t, string(jobs.JobStatusPending), body["status"])
			}
		}(i)
	}
	wg.Wait()

	for i := range codes {
		require.Equal(t, http.StatusAccepted, codes[i])
		require.NotEmpty(t, ids[i])
	}
	require.Eventually(t, func() bool {
		done, err := ts.jobStore.ListJobs(context.Background(), jobs.JobFilter{Status: jobs.JobStatusCompleted})
		return err == nil && len(done) == n
	}, 5*time.Second, 10*time.Millisecond)
}

func TestIngest_TextJobCompletes(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/ingest", map[string]string{"text": statement})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted map[string]string
	decode(t, rec, &accepted)
	jobID := accepted["job_id"]
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		job, err := ts.jobStore.GetJob(context.Background(), jobID)
		return err == nil && job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	rec = ts.do(t, http.MethodGet, "/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job jobs.IngestJob
	decode(t, rec, &job)
	assert.Equal(t, 3, job.TransactionCount)

	rec = ts.do(t, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []store.TransactionRecord
	decode(t, rec, &recs)
	require.Len(t, recs, 3)
	assert.Equal(t, jobID, recs[0].DocumentID)
	assert.Equal(t, "Checking", recs[0].AccountName)

	rec = ts.do(t, http.MethodGet, "/jobs?status=completed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)
}

func TestIngest_Validation(t *testing.T) {
	ts := newTestServer(t, false)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/ingest", map[string]string{}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/ingest", map[string]string{"gcs_uri": "http://x"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/ingest",
		map[string]string{"gcs_uri": "gs://b/o.txt", "text": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/jobs/missing", nil).Code)
}

func multipartUpload(t *testing.T, path, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "march.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_Sync(t *testing.T) {
	ts := newTestServer(t, false)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, multipartUpload(t, "/upload?sync=true", statement))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res pipeline.IngestResult
	decode(t, rec, &res)
	assert.Len(t, res.Transactions, 3)
	assert.NotEmpty(t, res.DocumentID)
}

func TestUpload_ToGCS(t *testing.T) {
	ts := newTestServer(t, true)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, multipartUpload(t, "/upload", statement))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted map[string]string
	decode(t, rec, &accepted)
	assert.Contains(t, accepted["gcs_uri"], "gs://statements/statements/")
	assert.Contains(t, ts.storage.objects, accepted["gcs_uri"])

	require.Eventually(t, func() bool {
		job, err := ts.jobStore.GetJob(context.Background(), accepted["job_id"])
		return err == nil && job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpload_EmptyBody(t *testing.T) {
	ts := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactions_Filters(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seed(t)

	var recs []store.TransactionRecord
	rec := ts.do(t, http.MethodGet, "/transactions?vendor=uber", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, "UBER TRIP", recs[0].Description)

	rec = ts.do(t, http.MethodGet, "/transactions?start_date=2025-04-01&end_date=2025-04-30", nil)
	decode(t, rec, &recs)
	assert.Len(t, recs, 1)

	rec = ts.do(t, http.MethodGet, "/transactions?category=food", nil)
	decode(t, rec, &recs)
	assert.Len(t, recs, 1)

	rec = ts.do(t, http.MethodGet, "/transactions/transfers", nil)
	decode(t, rec, &recs)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].IsTransfer)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/transactions?start_date=03/01/2025", nil).Code)
}

func TestTransactions_PatchAndDelete(t *testing.T) {
	ts := newTestServer(t, false)
	seeded := ts.seed(t)

	rec := ts.do(t, http.MethodPatch, "/transactions/"+seeded[0].ID, map[string]interface{}{"category": "Rideshare", "is_transfer": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated store.TransactionRecord
	decode(t, rec, &updated)
	assert.Equal(t, "Rideshare", updated.Category)
	assert.Equal(t, seeded[0].Merchant, updated.Merchant)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPatch, "/transactions/nope", map[string]string{"category": "X"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPatch, "/transactions/"+seeded[0].ID, map[string]string{}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPatch, "/transactions/"+seeded[0].ID, map[string]string{"amount": "1"}).Code)

	rec = ts.do(t, http.MethodDelete, "/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted map[string]int
	decode(t, rec, &deleted)
	assert.Equal(t, 3, deleted["deleted"])

	var recs []store.TransactionRecord
	decode(t, ts.do(t, http.MethodGet, "/transactions", nil), &recs)
	assert.Empty(t, recs)
}

func TestCommand(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seed(t)

	rec := ts.do(t, http.MethodPost, "/command", map[string]string{"command": "Change all Starbucks to Coffee"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res pipeline.CommandResult
	decode(t, rec, &res)
	assert.Equal(t, domain.ActionUpdateCategory, res.Action.Action)
	assert.Equal(t, 1, res.Updated)

	rec = ts.do(t, http.MethodPost, "/command", map[string]string{"command": "tell me a joke"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.Equal(t, domain.ActionUnknown, res.Action.Action)
	assert.Zero(t, res.Updated)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/command", map[string]string{"command": ""}).Code)
}

func TestBudget(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/budget", domain.Budget{Category: "Food", MonthlyLimit: 400})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/budget", domain.Budget{Category: "food", MonthlyLimit: 450})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/budget", domain.Budget{Category: " "}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/budget", domain.Budget{Category: "X", MonthlyLimit: -1}).Code)

	var budgets []domain.Budget
	decode(t, ts.do(t, http.MethodGet, "/budget", nil), &budgets)
	require.Len(t, budgets, 1)
	assert.Equal(t, 450.0, budgets[0].MonthlyLimit)
}

func TestBudget_Generate(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/budget/generate", map[string]interface{}{"income": 4000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var plan pipeline.BudgetPlan
	decode(t, rec, &plan)
	assert.Equal(t, domain.BudgetModeZeroBased, plan.Mode)

	var total float64
	for _, it := range plan.Items {
		total += it.SuggestedLimit
	}
	assert.InDelta(t, 4000, total, 0.01)

	req := httptest.NewRequest(http.MethodPost, "/budget/generate", nil)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &plan)
	assert.Equal(t, domain.BudgetModeTrends, plan.Mode)
	assert.Empty(t, plan.Items)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/budget/generate", map[string]interface{}{"mode": "zero_based"}).Code)
}

func TestBudget_GenerateItemsFormat(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/budget/generate?format=items", map[string]interface{}{"income": 3000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var items []domain.BudgetItem
	decode(t, rec, &items)
	assert.Len(t, items, len(domain.StandardCategories))

	rec = ts.do(t, http.MethodPost, "/budget/generate?format=csv", map[string]interface{}{"income": 3000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudget_Status(t *testing.T) {
	ts := newTestServer(t, false)
	today := time.Now().UTC().Format("2006-01-02")
	_, err := ts.repo.InsertTransactions(context.Background(), "doc", []domain.Transaction{
		{Date: today, Description: "RENT", Amount: -1200, Type: domain.TypeExpense, Category: "Housing", AccountName: "Checking"},
		{Date: today, Description: "TESCO", Amount: -60, Type: domain.TypeExpense, Category: "Food", AccountName: "Checking"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/budget", domain.Budget{Category: "Housing", MonthlyLimit: 1000}).Code)

	rec := ts.do(t, http.MethodGet, "/budget/status", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var status []domain.BudgetStatus
	decode(t, rec, &status)
	require.Len(t, status, 2)
	assert.Equal(t, "Housing", status[0].Category)
	assert.Equal(t, domain.BudgetLevelOver, status[0].Level)
	assert.Equal(t, 120.0, status[0].Percent)
	assert.Equal(t, "Food", status[1].Category)
	assert.Equal(t, domain.BudgetLevelNone, status[1].Level)
}
