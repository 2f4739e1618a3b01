package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdibridge/bridge/pkg/audit"
	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/jdibridge/bridge/pkg/engine"
	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/nativeconn/nativeconntest"
	"github.com/jdibridge/bridge/pkg/request"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	fake := nativeconntest.New()
	eng := engine.New(fake, audit.Noop{}, 0, 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng.Start(ctx)
	t.Cleanup(eng.Stop)
	return New(eng, nil), eng
}

func doGet(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsHealthyWhileDispatcherRuns(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doGet(s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRequestsListsLiveEntriesForKind(t *testing.T) {
	s, eng := newTestServer(t)
	_, err := eng.Managers.Breakpoint.CreateWithId(context.Background(),
		request.BreakpointKey{FileName: "Foo.java", LineNumber: 5}, correlation.New(), nil)
	require.NoError(t, err)

	rec := doGet(s, "/requests/"+string(nativeconn.KindBreakpoint))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	reqs, ok := body["requests"].([]any)
	require.True(t, ok)
	assert.Len(t, reqs, 1)
}

func TestRequestsRejectsUnknownKind(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doGet(s, "/requests/not-a-kind")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPipelinesReportsSubscriberCount(t *testing.T) {
	s, eng := newTestServer(t)
	key := request.BreakpointKey{FileName: "Foo.java", LineNumber: 9}
	stream, err := eng.Profiles.Breakpoint.Subscribe(context.Background(), key)
	require.NoError(t, err)
	defer stream.Close()

	rec := doGet(s, "/pipelines/"+string(nativeconn.KindBreakpoint))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	subs, ok := body["subscribers"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, subs, 1)
}
