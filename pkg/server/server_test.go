package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/model"
	"github.com/finsight-ai/finsight/pkg/orchestrator"
	"github.com/finsight-ai/finsight/pkg/session"
	"github.com/finsight-ai/finsight/pkg/subagent"
	"github.com/finsight-ai/finsight/pkg/subagents"
)

func newTestServer(t *testing.T, agents ...subagent.Subagent) *Server {
	t.Helper()
	reg := subagent.NewRegistry()
	for _, sa := range agents {
		require.NoError(t, reg.Register(sa))
	}
	orch := orchestrator.New(reg, session.NewMemoryStore(time.Minute))
	return New("127.0.0.1:0", orch, nil)
}

func fullServer(t *testing.T) *Server {
	t.Helper()
	return newTestServer(t,
		subagents.NewMarketDataAgent(&subagents.StaticQuoteSource{}, nil),
		subagents.NewRiskAgent(nil),
		subagents.NewDashboardAgent(nil),
		subagents.NewExplainerAgent(nil, nil),
		subagents.NewPlannerAgent(nil),
	)
}

func TestHealthz(t *testing.T) {
	srv := fullServer(t)
	rec := httptest.NewRecorder()

	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestReadyz(t *testing.T) {
	t.Run("ready with full registry", func(t *testing.T) {
		srv := fullServer(t)
		rec := httptest.NewRecorder()

		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["ready"])
		assert.NotEmpty(t, body["scenarios"])
	})

	t.Run("503 when a required subagent is missing", func(t *testing.T) {
		srv := newTestServer(t, subagents.NewExplainerAgent(nil, nil))
		rec := httptest.NewRecorder()

		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["ready"])
	})
}

func TestAnalyze(t *testing.T) {
	srv := fullServer(t)

	t.Run("malformed body answers 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze",
			bytes.NewBufferString("{not json"))

		srv.routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp model.AnalysisResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, model.StatusError, resp.Status)
		assert.Contains(t, resp.Error, "invalid request body")
	})

	t.Run("successful analysis answers 200", func(t *testing.T) {
		body, err := json.Marshal(&model.AnalysisRequest{
			Messages: []model.Message{
				{Role: model.RoleUser, Content: "Оцени риск портфеля: SBER 40%, GAZP 30%, LKOH 30%"},
			},
			Locale: "ru",
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
		srv.routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp model.AnalysisResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, model.StatusSuccess, resp.Status)
		assert.NotEmpty(t, resp.Text)
		assert.NotNil(t, resp.Dashboard)
	})

	t.Run("domain failure still answers 200 with error envelope", func(t *testing.T) {
		body, err := json.Marshal(&model.AnalysisRequest{
			Messages: []model.Message{{Role: model.RoleUser, Content: "привет, как дела?"}},
			Locale:   "ru",
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
		srv.routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp model.AnalysisResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, model.StatusError, resp.Status)
		assert.NotEmpty(t, resp.Error)
	})
}
