package executor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/contract-tester/probe/model"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newTarget(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		mu.Lock()
		seen = append(seen, rec)
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestExecuteDispatch(t *testing.T) {
	srv, seen := newTarget(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok": true, "count": 2}`))
	})
	endpoint := srv.URL + "/api/users"

	cases := []*model.TestCase{
		{Name: "post", Method: "post", Data: model.Body{"email": "a@b.co"}, ExpectedStatusCode: 200},
		{Name: "get", Method: "GET", Data: model.Body{"q": "x", "tags": []any{"a", "b"}, "skip": nil}, ExpectedStatusCode: 200},
		{Name: "get by id", Method: "get", Data: model.Body{"id": int64(7), "q": "x"}, ExpectedStatusCode: 200},
		{Name: "put by id", Method: "Put", Data: model.Body{"id": "abc", "name": "n"}, ExpectedStatusCode: 201},
		{Name: "delete", Method: "DELETE", Data: model.Body{"name": "n"}, ExpectedStatusCode: 200},
		{Name: "put null id", Method: "PUT", Data: model.Body{"id": nil, "name": "n"}, ExpectedStatusCode: 200},
		{Name: "get null id", Method: "GET", Data: model.Body{"id": nil, "q": "x"}, ExpectedStatusCode: 200},
	}
	executed, err := New().Run(context.Background(), endpoint, cases)
	require.NoError(t, err)
	require.Len(t, executed, 7)
	require.Len(t, *seen, 7)

	got := *seen
	require.Equal(t, http.MethodPost, got[0].method)
	require.Equal(t, "a@b.co", got[0].body["email"])

	require.Equal(t, http.MethodGet, got[1].method)
	require.Equal(t, "q=x&tags=a&tags=b", got[1].query)

	require.Equal(t, "/api/users/7", got[2].path)
	require.Empty(t, got[2].query)

	require.Equal(t, http.MethodPut, got[3].method)
	require.Equal(t, "/api/users/abc", got[3].path)
	require.Equal(t, "n", got[3].body["name"])

	require.Equal(t, http.MethodDelete, got[4].method)
	require.Equal(t, "n", got[4].body["name"])

	require.Equal(t, "/api/users", got[5].path)
	require.Contains(t, got[5].body, "id")
	require.Nil(t, got[5].body["id"])

	require.Equal(t, "/api/users", got[6].path)
	require.Equal(t, "q=x", got[6].query)

	require.True(t, cases[0].Passed())
	require.Equal(t, map[string]any{"ok": true, "count": int64(2)}, cases[0].ActualResponse)
	require.Equal(t, "Expected 200, got 200", cases[0].TestResult.Notes)

	require.False(t, cases[3].Passed())
	require.False(t, cases[3].TestResult.StatusCodeMatch)
	require.Equal(t, 200, cases[3].ActualStatusCode.Code)
}

func TestExecuteTextResponse(t *testing.T) {
	srv, _ := newTarget(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad email"))
	})

	c := &model.TestCase{Name: "x", Method: "POST", Data: model.Body{}, ExpectedStatusCode: 400}
	New().Execute(context.Background(), srv.URL+"/a/b", c)
	require.True(t, c.Passed())
	require.Equal(t, "bad email", c.ActualResponse)
}

func TestUnsupportedMethodIsolated(t *testing.T) {
	srv, seen := newTarget(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []*model.TestCase{
		{Name: "patch", Method: "PATCH", Data: model.Body{}, ExpectedStatusCode: 200},
		{Name: "post", Method: "POST", Data: model.Body{}, ExpectedStatusCode: 200},
	}
	executed, err := New().Run(context.Background(), srv.URL+"/a/b", cases)
	require.NoError(t, err)
	require.Len(t, executed, 2)
	require.Len(t, *seen, 1)

	require.False(t, cases[0].Passed())
	require.True(t, cases[0].ActualStatusCode.Error)
	require.Contains(t, cases[0].TestResult.Error, model.ErrUnsupportedMethod.Error())
	require.True(t, cases[1].Passed())
}

func TestTransportFailureIsolated(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cases := []*model.TestCase{
		{Name: "dropped", Method: "POST", Data: model.Body{}, ExpectedStatusCode: 200},
		{Name: "fine", Method: "POST", Data: model.Body{}, ExpectedStatusCode: 200},
		{Name: "also fine", Method: "POST", Data: model.Body{}, ExpectedStatusCode: 200},
	}
	executed, err := New().Run(context.Background(), srv.URL+"/a/b", cases)
	require.NoError(t, err)
	require.Len(t, executed, 3)

	require.False(t, cases[0].Passed())
	require.True(t, cases[0].ActualStatusCode.Error)
	require.NotEmpty(t, cases[0].TestResult.Error)
	require.Equal(t, `"Error"`, mustJSON(t, cases[0].ActualStatusCode))

	require.True(t, cases[1].Passed())
	require.True(t, cases[2].Passed())
}

func TestPerCaseTimeout(t *testing.T) {
	srv, _ := newTarget(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	c := &model.TestCase{Name: "slow", Method: "POST", Data: model.Body{}, ExpectedStatusCode: 200}
	New(WithTimeout(50*time.Millisecond)).Execute(context.Background(), srv.URL+"/a/b", c)
	require.False(t, c.Passed())
	require.True(t, c.ActualStatusCode.Error)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, _ := newTarget(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := make([]*model.TestCase, 5)
	for i := range cases {
		cases[i] = &model.TestCase{Name: "c", Method: "POST", Data: model.Body{}, ExpectedStatusCode: 200}
	}

	var events []Event
	observer := func(ev Event) {
		events = append(events, ev)
		if ev.Index == 2 {
			cancel()
		}
	}
	executed, err := New(WithObserver(observer)).Run(ctx, srv.URL+"/a/b", cases)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, executed, 2)
	require.Len(t, events, 2)
	require.Equal(t, 5, events[0].Total)
	for _, c := range cases[2:] {
		require.False(t, c.Executed())
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
