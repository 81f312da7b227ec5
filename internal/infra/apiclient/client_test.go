package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/label-crew/internal/domain"
)

type recordedRequest struct {
	Header http.Header
	Method string
	Path   string
	Query  string
	Body   string
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Header: r.Header.Clone(),
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newTestClient(t *testing.T, srv *httptest.Server, cfg domain.APIConfig, endpoints map[domain.Action]string, opts ...Option) *Client {
	t.Helper()
	cfg.Gateway = srv.URL + "/api"
	c, err := New(cfg, endpoints, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(domain.APIConfig{}, nil)
	assert.Error(t, err)

	_, err = New(domain.APIConfig{Gateway: "ftp://x"}, nil)
	assert.Error(t, err)

	_, err = New(domain.APIConfig{Gateway: "http://x"}, map[domain.Action]string{domain.ActionTask: "FETCH /t"})
	assert.ErrorContains(t, err, "task")
}

func TestClient_GetTask(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"id": 7,
			"data": {"text": "hello"},
			"created_at": "2026-02-01T10:00:00Z",
			"annotations": [{"id": 501, "created_by": 3, "result": [{"type": "choices"}], "lead_time": 1.5}],
			"predictions": [{"id": "p-1", "model_version": "v2", "score": 0.9, "result": []}]
		}`)
	})
	c := newTestClient(t, srv, domain.APIConfig{Token: "secret"}, nil)

	resp, err := c.Call(context.Background(), domain.ActionTask, domain.TaskParams(7), nil)
	require.NoError(t, err)

	require.NotNil(t, resp.Task)
	assert.Equal(t, 7, resp.Task.ID)
	assert.Equal(t, "hello", resp.Task.Data["text"])
	require.Len(t, resp.Task.Annotations, 1)
	assert.Equal(t, "501", resp.Task.Annotations[0].PK)
	assert.Equal(t, "3", resp.Task.Annotations[0].CreatedBy)
	assert.InDelta(t, 1.5, resp.Task.Annotations[0].LeadTime, 1e-9)
	assert.Equal(t, "p-1", resp.Task.Predictions[0].ID)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/tasks/7", req.Path)
	assert.Empty(t, req.Query)
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestClient_SubmitAnnotation(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 42}`)
	})
	c := newTestClient(t, srv, domain.APIConfig{}, nil)

	body := domain.AnnotationBody{Result: domain.Result{{"type": "choices"}}, LeadTime: 2}
	resp, err := c.Call(context.Background(), domain.ActionSubmitAnnotation, domain.TaskParams(7), body)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "42", resp.ID)
	assert.True(t, resp.HasID())

	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/tasks/7/annotations", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Empty(t, req.Header.Get("Authorization"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.InDelta(t, 2.0, sent["lead_time"], 1e-9)
	assert.NotContains(t, sent, "id")
}

func TestClient_SkipSendsLeftoverParamsAsQuery(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id": "abc"}`)
	})
	c := newTestClient(t, srv, domain.APIConfig{}, nil)

	params := domain.AnnotationParams(7, "12")
	params[domain.ParamWasCancelled] = "1"
	resp, err := c.Call(context.Background(), domain.ActionSkipTask, params, domain.AnnotationBody{})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.ID)

	req := (*reqs)[0]
	assert.Equal(t, "/api/tasks/7/annotations", req.Path)
	assert.Equal(t, "completionID=12&was_cancelled=1", req.Query)
}

func TestClient_EndpointOverride(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, srv, domain.APIConfig{}, map[domain.Action]string{
		domain.ActionDeleteAnnotation: "post /tasks/:taskID/annotations/:completionID/delete",
	})

	resp, err := c.Call(context.Background(), domain.ActionDeleteAnnotation, domain.AnnotationParams(3, "9"), nil)
	require.NoError(t, err)
	assert.True(t, resp.OK)

	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/tasks/3/annotations/9/delete", req.Path)
}

func TestClient_MissingParam(t *testing.T) {
	srv, reqs := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	c := newTestClient(t, srv, domain.APIConfig{}, nil)

	_, err := c.Call(context.Background(), domain.ActionUpdateAnnotation, domain.TaskParams(1), nil)
	assert.ErrorIs(t, err, domain.ErrMissingParam)
	assert.Empty(t, *reqs)

	_, err = c.Call(context.Background(), domain.Action("bogus"), nil, nil)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestClient_NextTaskExhausted(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusNoContent} {
		srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		})
		c := newTestClient(t, srv, domain.APIConfig{}, nil)

		resp, err := c.Call(context.Background(), domain.ActionNextTask, nil, nil)
		require.NoError(t, err, "status %d", code)
		assert.True(t, resp.OK)
		assert.Nil(t, resp.Task)
	}
}

func TestClient_StatusErrors(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		if r.URL.Path == "/api/project" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.Error(w, "missing", http.StatusNotFound)
	})
	c := newTestClient(t, srv, domain.APIConfig{}, nil)
	ctx := context.Background()

	_, err := c.Call(ctx, domain.ActionTask, domain.TaskParams(99), nil)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)

	_, err = c.Call(ctx, domain.ActionUpdateAnnotation, domain.AnnotationParams(1, "5"), domain.AnnotationBody{})
	assert.ErrorIs(t, err, domain.ErrAnnotationNotFound)
	assert.NotErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = c.Call(ctx, domain.ActionProject, nil, nil)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Contains(t, err.Error(), "boom")
	assert.NotErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestClient_DecodeTaskList(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `[{"id": 1}, {"id": 2}]`},
		{"page", `{"tasks": [{"id": 1}, {"id": 2}], "total": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			c := newTestClient(t, srv, domain.APIConfig{}, nil)

			resp, err := c.Call(context.Background(), domain.ActionTasks, nil, nil)
			require.NoError(t, err)
			require.Len(t, resp.Tasks, 2)
			assert.Equal(t, 2, resp.Tasks[1].ID)
		})
	}
}

func TestClient_DecodeError(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id": [`)
	})
	c := newTestClient(t, srv, domain.APIConfig{}, nil)

	_, err := c.Call(context.Background(), domain.ActionTask, domain.TaskParams(1), nil)
	assert.ErrorContains(t, err, "decode task")
}

func TestClient_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c := newTestClient(t, srv, domain.APIConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Call(ctx, domain.ActionTask, domain.TaskParams(1), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_SharesInFlightReads(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-gate
		_, _ = io.WriteString(w, `{"id": 1}`)
	})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := newTestClient(t, srv, domain.APIConfig{}, nil, WithMetrics(metrics))

	const callers = 4
	var wg sync.WaitGroup
	started := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			resp, err := c.Call(context.Background(), domain.ActionTask, domain.TaskParams(1), nil)
			assert.NoError(t, err)
			if assert.NotNil(t, resp) {
				assert.Equal(t, 1, resp.Task.ID)
			}
		}()
	}
	for i := 0; i < callers; i++ {
		<-started
	}
	// Give every caller time to join the in-flight request.
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.InDelta(t, float64(callers), promtest.ToFloat64(metrics.sharedTotal.WithLabelValues("task")), 1e-9)
}

func TestClient_CanceledReaderLeavesOthersWaiting(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-gate
		_, _ = io.WriteString(w, `{"id": 2}`)
	})
	c := newTestClient(t, srv, domain.APIConfig{}, nil)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Call(first, domain.ActionTask, domain.TaskParams(2), nil)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		resp *domain.APIResponse
		err  error
	}
	second := make(chan result, 1)
	go func() {
		resp, err := c.Call(context.Background(), domain.ActionTask, domain.TaskParams(2), nil)
		second <- result{resp, err}
	}()
	time.Sleep(50 * time.Millisecond)

	// The caller that started the request gives up first.
	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(gate)
	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.resp.Task)
	assert.Equal(t, 2, got.resp.Task.ID)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_NextTaskIsNotShared(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		n := hits.Add(1)
		<-gate
		_, _ = io.WriteString(w, `{"id": `+strconv.Itoa(int(n))+`}`)
	})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := newTestClient(t, srv, domain.APIConfig{}, nil, WithMetrics(metrics))

	const callers = 2
	ids := make(chan int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Call(context.Background(), domain.ActionNextTask, nil, nil)
			if assert.NoError(t, err) && assert.NotNil(t, resp.Task) {
				ids <- resp.Task.ID
			}
		}()
	}
	require.Eventually(t, func() bool { return hits.Load() == callers }, time.Second, 5*time.Millisecond)
	close(gate)
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, callers, "each caller gets its own task")
	assert.Zero(t, promtest.ToFloat64(metrics.sharedTotal.WithLabelValues("nextTask")))
}

func TestClient_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/project" {
			_, _ = io.WriteString(w, `{"title": "demo", "label_config": "<View/>"}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := newTestClient(t, srv, domain.APIConfig{}, nil, WithMetrics(metrics))
	ctx := context.Background()

	resp, err := c.Call(ctx, domain.ActionProject, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "demo", resp.Project.Title)

	_, err = c.Call(ctx, domain.ActionTasks, nil, nil)
	require.Error(t, err)

	assert.InDelta(t, 1.0, promtest.ToFloat64(metrics.requestsTotal.WithLabelValues("project", "200")), 1e-9)
	assert.InDelta(t, 1.0, promtest.ToFloat64(metrics.requestsTotal.WithLabelValues("tasks", "502")), 1e-9)
	assert.Equal(t, 2, promtest.CollectAndCount(metrics.requestDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestClient_RateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, srv, domain.APIConfig{RateLimit: 20}, nil)
	require.NotNil(t, c.limiter)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Call(context.Background(), domain.ActionDeleteAnnotation, domain.AnnotationParams(1, "1"), nil)
		require.NoError(t, err)
	}
	// Burst of one at 20/s: the second and third calls wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{Action: domain.ActionTask, Code: 500}
	assert.Equal(t, "task: 500 Internal Server Error", err.Error())
	assert.False(t, errors.Is(err, domain.ErrTaskNotFound))
}
