package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/orchestrator"
	"github.com/shaiso/bricks/internal/repo"
)

const testDB = "default database"

type fakePublisher struct {
	mu        sync.Mutex
	requested []uuid.UUID
	err       error
}

func (p *fakePublisher) PublishRunRequested(_ context.Context, functionID uuid.UUID) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return uuid.Nil, p.err
	}
	p.requested = append(p.requested, functionID)
	return uuid.New(), nil
}

func (p *fakePublisher) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakePublisher) calls() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uuid.UUID(nil), p.requested...)
}

type testServer struct {
	t         *testing.T
	srv       *httptest.Server
	store     *repo.MemoryStore
	publisher *fakePublisher
	project   uuid.UUID
}

func newTestServer(t *testing.T, withPublisher bool) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repo.NewMemoryStore()
	project := uuid.New()

	_, err := store.AddDatabase(project, testDB, []domain.Property{{Name: "value", Type: "string"}})
	require.NoError(t, err)

	registry := bricks.DefaultRegistry()
	cfg := Config{
		Functions: store,
		Databases: store,
		Registry:  registry,
		Runner: orchestrator.New(orchestrator.Config{
			Registry: registry,
			Store:    store,
			Loader:   store,
			Logger:   logger,
		}),
		Logger: logger,
	}

	ts := &testServer{t: t, store: store, project: project}
	if withPublisher {
		ts.publisher = &fakePublisher{}
		cfg.Publisher = ts.publisher
	}

	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)
	ts.srv = httptest.NewServer(mux)
	t.Cleanup(ts.srv.Close)
	return ts
}

// do выполняет запрос и декодирует тело ответа в out (если out != nil).
func (ts *testServer) do(method, path string, body any, out any) int {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) createFunction() uuid.UUID {
	ts.t.Helper()
	var resp struct{ Data FunctionResponse }
	status := ts.do(http.MethodPost, "/api/v1/functions", CreateFunctionRequest{ProjectID: ts.project, Name: "f"}, &resp)
	require.Equal(ts.t, http.StatusCreated, status)
	return resp.Data.ID
}

func (ts *testServer) addBrick(fn uuid.UUID, brickType string, config map[string]any) uuid.UUID {
	ts.t.Helper()
	var resp struct{ Data BrickResponse }
	status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/bricks",
		AddBrickRequest{Type: brickType, Config: config}, &resp)
	require.Equal(ts.t, http.StatusCreated, status)
	return resp.Data.ID
}

func (ts *testServer) connect(fn, from uuid.UUID, fromPort string, to uuid.UUID, toPort string) (int, ErrorResponse) {
	ts.t.Helper()
	var resp ErrorResponse
	status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/connections",
		ConnectRequest{FromBrickID: from, FromPort: fromPort, ToBrickID: to, ToPort: toPort}, &resp)
	return status, resp
}

// pipeline собирает list_instances → get_first_instance → log_instance_properties.
func (ts *testServer) pipeline() (fn, list, first, log uuid.UUID) {
	ts.t.Helper()
	fn = ts.createFunction()
	list = ts.addBrick(fn, bricks.BrickTypeListInstances, map[string]any{bricks.ConfigDatabaseName: testDB})
	first = ts.addBrick(fn, bricks.BrickTypeGetFirstInstance, nil)
	log = ts.addBrick(fn, bricks.BrickTypeLogInstanceProperties, nil)

	status, _ := ts.connect(fn, list, "instances", first, "instances")
	require.Equal(ts.t, http.StatusCreated, status)
	status, _ = ts.connect(fn, first, "instance", log, "object")
	require.Equal(ts.t, http.StatusCreated, status)
	return fn, list, first, log
}

func TestListBrickTypes(t *testing.T) {
	ts := newTestServer(t, false)

	var resp struct {
		Data  []BrickTypeResponse
		Total int
	}
	status := ts.do(http.MethodGet, "/api/v1/brick-types", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, resp.Total)

	types := make([]string, len(resp.Data))
	for i, bt := range resp.Data {
		types[i] = bt.Type
	}
	assert.Contains(t, types, bricks.BrickTypeListInstances)
	assert.Contains(t, types, bricks.BrickTypeLogInstanceProperties)
}

func TestCreateFunction_Validation(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name string
		body any
	}{
		{"missing name", map[string]any{"project_id": ts.project}},
		{"missing project", map[string]any{"name": "f"}},
		{"unknown field", map[string]any{"project_id": ts.project, "name": "f", "extra": 1}},
		{"not json", "just a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			status := ts.do(http.MethodPost, "/api/v1/functions", tt.body, &resp)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, ErrCodeBadRequest, resp.Error.Code)
		})
	}
}

func TestRunFunction_Pipeline(t *testing.T) {
	ts := newTestServer(t, false)

	_, err := ts.store.AddInstance(ts.project, testDB, map[string]string{"value": "X"})
	require.NoError(t, err)
	_, err = ts.store.AddInstance(ts.project, testDB, map[string]string{"value": "Y"})
	require.NoError(t, err)

	fn, _, _, _ := ts.pipeline()

	var resp struct{ Data ExecutionResponse }
	status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/run", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.ExecutionStatusSucceeded, resp.Data.Status)
	assert.Equal(t, []string{`{"value":"X"}`}, resp.Data.OutputLines)
}

func TestRunFunction_EmptyDatabase(t *testing.T) {
	ts := newTestServer(t, false)
	fn, _, first, _ := ts.pipeline()

	var resp ErrorResponse
	status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/run", nil, &resp)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, ErrCodeExecutionFailed, resp.Error.Code)
	require.NotNil(t, resp.Error.FailedBrickID)
	assert.Equal(t, first, *resp.Error.FailedBrickID)
}

func TestRunFunction_InvalidGraph(t *testing.T) {
	ts := newTestServer(t, false)
	fn := ts.createFunction()
	log := ts.addBrick(fn, bricks.BrickTypeLogInstanceProperties, nil)

	var resp ErrorResponse
	status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/run", nil, &resp)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, ErrCodeValidationFailed, resp.Error.Code)
	require.Len(t, resp.Error.Errors, 1)
	require.NotNil(t, resp.Error.Errors[0].BrickID)
	assert.Equal(t, log, *resp.Error.Errors[0].BrickID)
	assert.Equal(t, "object", resp.Error.Errors[0].Port)
}

func TestRunFunction_NotFound(t *testing.T) {
	ts := newTestServer(t, false)

	status := ts.do(http.MethodPost, "/api/v1/functions/"+uuid.NewString()+"/run", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = ts.do(http.MethodPost, "/api/v1/functions/not-a-uuid/run", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestValidateFunction(t *testing.T) {
	ts := newTestServer(t, false)
	fn := ts.createFunction()
	ts.addBrick(fn, bricks.BrickTypeGetFirstInstance, nil)

	var resp struct{ Data ValidationReport }
	status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/validate", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "missing required input", resp.Data.Errors[0].Kind)

	valid, _, _, _ := ts.pipeline()
	status = ts.do(http.MethodPost, "/api/v1/functions/"+valid.String()+"/validate", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Errors)
}

func TestConnect_Errors(t *testing.T) {
	ts := newTestServer(t, false)
	fn, list, first, log := ts.pipeline()
	extra := ts.addBrick(fn, bricks.BrickTypeGetFirstInstance, nil)

	tests := []struct {
		name     string
		from     uuid.UUID
		fromPort string
		to       uuid.UUID
		toPort   string
		status   int
	}{
		{"input already connected", list, "instances", first, "instances", http.StatusConflict},
		{"occupied input wins over type check", list, "instances", log, "object", http.StatusConflict},
		{"type mismatch on free input", first, "instance", extra, "instances", http.StatusBadRequest},
		{"unknown port", list, "nope", extra, "instances", http.StatusBadRequest},
		{"self loop", extra, "instance", extra, "instances", http.StatusBadRequest},
		{"unknown brick", uuid.New(), "instances", extra, "instances", http.StatusNotFound},
		{"configured input", first, "instance", list, "database", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := ts.connect(fn, tt.from, tt.fromPort, tt.to, tt.toPort)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestUpdateConfiguration(t *testing.T) {
	ts := newTestServer(t, false)
	fn := ts.createFunction()
	list := ts.addBrick(fn, bricks.BrickTypeListInstances, nil)
	path := "/api/v1/functions/" + fn.String() + "/bricks/" + list.String() + "/configuration"

	// Неизвестная база отклоняется до записи
	var errResp ErrorResponse
	status := ts.do(http.MethodPatch, path,
		UpdateConfigurationRequest{Config: map[string]any{bricks.ConfigDatabaseName: "missing"}}, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, ErrCodeInvalidState, errResp.Error.Code)

	status = ts.do(http.MethodPatch, path,
		UpdateConfigurationRequest{Config: map[string]any{"unknown": "x"}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var resp struct{ Data BrickResponse }
	status = ts.do(http.MethodPatch, path,
		UpdateConfigurationRequest{Config: map[string]any{bricks.ConfigDatabaseName: testDB}}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, testDB, resp.Data.Config[bricks.ConfigDatabaseName])

	snap, err := ts.store.LoadSnapshot(context.Background(), fn)
	require.NoError(t, err)
	assert.Equal(t, testDB, snap.Bricks[0].Config[bricks.ConfigDatabaseName])

	// null удаляет ключ
	var cleared struct{ Data BrickResponse }
	status = ts.do(http.MethodPatch, path, map[string]any{"config": map[string]any{bricks.ConfigDatabaseName: nil}}, &cleared)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, cleared.Data.Config, bricks.ConfigDatabaseName)

	snap, err = ts.store.LoadSnapshot(context.Background(), fn)
	require.NoError(t, err)
	assert.Empty(t, snap.Bricks[0].Config)
}

func TestTemplateConfiguration(t *testing.T) {
	ts := newTestServer(t, false)
	fn := ts.createFunction()

	var errResp ErrorResponse
	status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/bricks",
		AddBrickRequest{Type: bricks.BrickTypeFormatInstance, Config: map[string]any{bricks.ConfigTemplate: "{{ .Values.value "}}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeBadRequest, errResp.Error.Code)

	format := ts.addBrick(fn, bricks.BrickTypeFormatInstance, map[string]any{bricks.ConfigTemplate: "{{ .Values.value }}"})
	path := "/api/v1/functions/" + fn.String() + "/bricks/" + format.String() + "/configuration"

	status = ts.do(http.MethodPatch, path,
		UpdateConfigurationRequest{Config: map[string]any{bricks.ConfigTemplate: "{{ if }}"}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	snap, err := ts.store.LoadSnapshot(context.Background(), fn)
	require.NoError(t, err)
	require.Len(t, snap.Bricks, 1)
	assert.Equal(t, "{{ .Values.value }}", snap.Bricks[0].Config[bricks.ConfigTemplate])
}

func TestUpdatePosition(t *testing.T) {
	ts := newTestServer(t, false)
	fn := ts.createFunction()
	b := ts.addBrick(fn, bricks.BrickTypeLogText, nil)
	path := "/api/v1/functions/" + fn.String() + "/bricks/" + b.String() + "/position"

	var resp struct{ Data BrickResponse }
	status := ts.do(http.MethodPatch, path, map[string]any{"x": 10.5, "y": -3}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.Position{X: 10.5, Y: -3}, resp.Data.Position)

	status = ts.do(http.MethodPatch, path, map[string]any{"x": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = ts.do(http.MethodPatch, "/api/v1/functions/"+fn.String()+"/bricks/"+uuid.NewString()+"/position",
		map[string]any{"x": 1, "y": 1}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRemoveBrick(t *testing.T) {
	ts := newTestServer(t, false)
	fn, _, first, _ := ts.pipeline()

	var resp struct{ Data RemoveBrickResponse }
	status := ts.do(http.MethodDelete, "/api/v1/functions/"+fn.String()+"/bricks/"+first.String(), nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Data.RemovedConnections, 2)

	var snap struct{ Data SnapshotResponse }
	status = ts.do(http.MethodGet, "/api/v1/functions/"+fn.String(), nil, &snap)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, snap.Data.Bricks, 2)
	assert.Empty(t, snap.Data.Connections)

	status = ts.do(http.MethodDelete, "/api/v1/functions/"+fn.String()+"/bricks/"+first.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDisconnect(t *testing.T) {
	ts := newTestServer(t, false)
	fn := ts.createFunction()
	list := ts.addBrick(fn, bricks.BrickTypeListInstances, map[string]any{bricks.ConfigDatabaseName: testDB})
	first := ts.addBrick(fn, bricks.BrickTypeGetFirstInstance, nil)

	var conn struct{ Data ConnectionResponse }
	status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/connections",
		ConnectRequest{FromBrickID: list, FromPort: "instances", ToBrickID: first, ToPort: "instances"}, &conn)
	require.Equal(t, http.StatusCreated, status)

	path := "/api/v1/functions/" + fn.String() + "/connections/" + conn.Data.ID.String()
	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, path, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, path, nil, nil))

	// Вход снова свободен
	status, _ = ts.connect(fn, list, "instances", first, "instances")
	assert.Equal(t, http.StatusCreated, status)
}

func TestRequestRun(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		ts := newTestServer(t, true)
		fn := ts.createFunction()

		var resp struct{ Data RunRequestedResponse }
		status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/runs", nil, &resp)
		require.Equal(t, http.StatusAccepted, status)
		assert.Equal(t, fn, resp.Data.FunctionID)
		assert.NotEqual(t, uuid.Nil, resp.Data.RequestID)
		assert.Equal(t, []uuid.UUID{fn}, ts.publisher.calls())
	})

	t.Run("unknown function", func(t *testing.T) {
		ts := newTestServer(t, true)
		status := ts.do(http.MethodPost, "/api/v1/functions/"+uuid.NewString()+"/runs", nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Empty(t, ts.publisher.calls())
	})

	t.Run("broker down", func(t *testing.T) {
		ts := newTestServer(t, true)
		ts.publisher.fail(errors.New("no channel"))
		fn := ts.createFunction()
		status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/runs", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("no queue configured", func(t *testing.T) {
		ts := newTestServer(t, false)
		fn := ts.createFunction()
		status := ts.do(http.MethodPost, "/api/v1/functions/"+fn.String()+"/runs", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})
}

func TestProjectListings(t *testing.T) {
	ts := newTestServer(t, false)
	fn := ts.createFunction()

	var dbs struct {
		Data  []DatabaseResponse
		Total int
	}
	status := ts.do(http.MethodGet, "/api/v1/projects/"+ts.project.String()+"/databases", nil, &dbs)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, dbs.Total)
	assert.Equal(t, testDB, dbs.Data[0].Name)

	var fns struct{ Data []FunctionResponse }
	status = ts.do(http.MethodGet, "/api/v1/projects/"+ts.project.String()+"/functions", nil, &fns)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, fns.Data, 1)
	assert.Equal(t, fn, fns.Data[0].ID)

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/v1/functions/"+fn.String(), nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/v1/functions/"+fn.String(), nil, nil))
}

func TestMiddleware_RequestID(t *testing.T) {
	ts := newTestServer(t, false)

	resp, err := http.Get(ts.srv.URL + "/api/v1/brick-types")
	require.NoError(t, err)
	resp.Body.Close()
	generated := resp.Header.Get(headerRequestID)
	_, err = uuid.Parse(generated)
	assert.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/v1/brick-types", nil)
	require.NoError(t, err)
	req.Header.Set(headerRequestID, "req-42")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(headerRequestID))
}

func TestMiddleware_Recovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(Recovery(logger), Metrics(), Logging(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeInternalError, body.Error.Code)
}
