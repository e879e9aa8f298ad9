package report_tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailplayground/internal/cache"
	"github.com/teemow/gmailplayground/internal/config"
	"github.com/teemow/gmailplayground/internal/gmail"
	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/server"
)

var reportDate = time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)

func reportThread(id, body string, date time.Time) *gmailapi.Thread {
	return &gmailapi.Thread{
		Id:        id,
		HistoryId: 10,
		Messages: []*gmailapi.Message{{
			Id:           "m-" + id,
			ThreadId:     id,
			InternalDate: date.UnixMilli(),
			Payload: &gmailapi.MessagePart{
				MimeType: "text/plain",
				Headers:  []*gmailapi.MessagePartHeader{{Name: "Subject", Value: "YARN Daily unit test report"}},
				Body:     &gmailapi.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(body))},
			},
		}},
	}
}

func newGmailServer(t *testing.T, threads ...*gmailapi.Thread) *httptest.Server {
	t.Helper()
	byID := make(map[string]*gmailapi.Thread)
	var list []*gmailapi.Thread
	for _, th := range threads {
		byID[th.Id] = th
		list = append(list, &gmailapi.Thread{Id: th.Id, HistoryId: th.HistoryId})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/gmail/v1/users/me/threads"
		switch {
		case r.URL.Path == prefix:
			_ = json.NewEncoder(w).Encode(gmailapi.ListThreadsResponse{Threads: list})
		case len(r.URL.Path) > len(prefix)+1:
			th, ok := byID[r.URL.Path[len(prefix)+1:]]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(th)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServerContext(t *testing.T, srv *httptest.Server) *server.ServerContext {
	t.Helper()
	factory := func(ctx context.Context, account string) (*gmail.Client, error) {
		if account != google.DefaultAccount {
			return nil, fmt.Errorf("%w: %s", google.ErrNoToken, google.GetAuthenticationErrorMessage(account))
		}
		return gmail.NewClient(ctx, srv.Client(), gmail.WithEndpoint(srv.URL+"/"))
	}
	sc, err := server.NewServerContext(context.Background(), config.Default(), factory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = toolFailureReport
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content type %T", res.Content[0])
	return text.Text
}

func TestRegisterReportTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	sc := newTestServerContext(t, newGmailServer(t))

	require.NoError(t, RegisterReportTools(s, sc))

	tools := s.ListTools()
	assert.Contains(t, tools, toolFailureReport)
	assert.Contains(t, tools, toolCacheStats)
}

func TestHandleFailureReport(t *testing.T) {
	srv := newGmailServer(t,
		reportThread("t1", "Failed testcases:\norg.apache.hadoop.yarn.TestA\norg.apache.hadoop.yarn.TestB", reportDate),
		reportThread("t2", "org.apache.hadoop.yarn.TestA", reportDate.Add(24*time.Hour)),
	)
	sc := newTestServerContext(t, srv)

	t.Run("rows", func(t *testing.T) {
		res, err := handleFailureReport(context.Background(), callRequest(nil), sc)
		require.NoError(t, err)
		assert.False(t, res.IsError)

		text := resultText(t, res)
		assert.Contains(t, text, "Processed 2 threads, 3 matching lines")
		assert.Contains(t, text, "Testcase")
		assert.Contains(t, text, "org.apache.hadoop.yarn.TestB...")
		assert.Contains(t, text, "m-t2")
	})

	t.Run("aggregated", func(t *testing.T) {
		res, err := handleFailureReport(context.Background(), callRequest(map[string]interface{}{
			"aggregated": true,
		}), sc)
		require.NoError(t, err)

		text := resultText(t, res)
		assert.Contains(t, text, "Processed 2 threads, 2 distinct testcases")
		assert.Contains(t, text, "Frequency of failures")
		assert.Contains(t, text, "2024-05-02 10:00:00")
	})

	t.Run("custom regex and limit", func(t *testing.T) {
		res, err := handleFailureReport(context.Background(), callRequest(map[string]interface{}{
			"regex": `org\.apache\.hadoop\.yarn\.TestB`,
			"limit": float64(1),
		}), sc)
		require.NoError(t, err)

		text := resultText(t, res)
		assert.Contains(t, text, "Processed 1 threads, 1 matching lines")
	})

	t.Run("skip prefixes", func(t *testing.T) {
		res, err := handleFailureReport(context.Background(), callRequest(map[string]interface{}{
			"skip_prefixes": []interface{}{"org.apache.hadoop.yarn.TestA"},
		}), sc)
		require.NoError(t, err)

		text := resultText(t, res)
		assert.Contains(t, text, "Processed 2 threads, 1 matching lines")
		assert.NotContains(t, text, "TestA")
	})
}

func TestHandleFailureReport_Errors(t *testing.T) {
	sc := newTestServerContext(t, newGmailServer(t))

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
	}{
		{
			name:    "missing token",
			args:    map[string]interface{}{"account": "work"},
			wantMsg: "gmailplayground auth --account work",
		},
		{
			name:    "invalid regex",
			args:    map[string]interface{}{"regex": "("},
			wantMsg: "Invalid report options",
		},
		{
			name:    "negative limit",
			args:    map[string]interface{}{"limit": float64(-1)},
			wantMsg: "limit must not be negative",
		},
		{
			name:    "invalid skip prefixes",
			args:    map[string]interface{}{"skip_prefixes": float64(3)},
			wantMsg: "must be a string or array of strings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handleFailureReport(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.wantMsg)
		})
	}
}

func TestHandleCacheStats(t *testing.T) {
	sc := newTestServerContext(t, newGmailServer(t))

	res, err := handleCacheStats(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, "Thread cache is disabled.", resultText(t, res))

	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Put(context.Background(), reportThread("t1", "x", reportDate)))
	sc.SetCache(store)

	res, err = handleCacheStats(context.Background(), sc)
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "Cached threads: 1")
	assert.Contains(t, text, "Oldest fetch:")
}

func TestHandleFailureReport_APIErrors(t *testing.T) {
	apiError := func(status int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"denied"}}`, status)
		}
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name:    "unauthorized",
			handler: apiError(http.StatusUnauthorized),
			wantMsg: "gmailplayground auth --account default",
		},
		{
			name:    "forbidden",
			handler: apiError(http.StatusForbidden),
			wantMsg: "Gmail access denied for account default",
		},
		{
			name: "thread not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if r.URL.Path == "/gmail/v1/users/me/threads" {
					_, _ = fmt.Fprint(w, `{"threads":[{"id":"gone","historyId":"1"}]}`)
					return
				}
				w.WriteHeader(http.StatusNotFound)
				_, _ = fmt.Fprint(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`)
			},
			wantMsg: "A listed thread disappeared from account default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			t.Cleanup(srv.Close)

			sc := newTestServerContext(t, srv)

			res, err := handleFailureReport(context.Background(), callRequest(nil), sc)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.wantMsg)
		})
	}
}
