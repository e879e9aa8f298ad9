package resources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailplayground/internal/config"
	"github.com/teemow/gmailplayground/internal/gmail"
	"github.com/teemow/gmailplayground/internal/server"
)

func newTestServerContext(t *testing.T, factory server.GmailClientFactory) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), config.Default(), factory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func decode(t *testing.T, contents []mcp.ResourceContents) map[string]interface{} {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &data))
	return data
}

func TestRegisterResources(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithResourceCapabilities(false, false))
	sc := newTestServerContext(t, func(context.Context, string) (*gmail.Client, error) {
		return nil, errors.New("unused")
	})
	assert.NoError(t, RegisterResources(s, sc))
}

func TestHandleReportConfig(t *testing.T) {
	sc := newTestServerContext(t, func(context.Context, string) (*gmail.Client, error) {
		return nil, errors.New("unused")
	})

	contents, err := handleReportConfig(context.Background(), readRequest(URIReportConfig), sc)
	require.NoError(t, err)

	data := decode(t, contents)
	assert.Equal(t, config.DefaultQuery, data["query"])
	assert.Equal(t, config.DefaultRegex, data["regex"])
	assert.EqualValues(t, config.DefaultLimit, data["limit"])
	assert.Equal(t, false, data["cache_enabled"])
	assert.Len(t, data["skip_lines_starting_with"], len(config.DefaultSkipPrefixes))
}

func TestHandleUserProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gmail/v1/users/me/profile" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gmailapi.Profile{EmailAddress: "ci@example.com", ThreadsTotal: 3, MessagesTotal: 9})
	}))
	t.Cleanup(srv.Close)

	sc := newTestServerContext(t, func(ctx context.Context, account string) (*gmail.Client, error) {
		return gmail.NewClient(ctx, srv.Client(), gmail.WithEndpoint(srv.URL+"/"), gmail.WithAccount(account))
	})

	contents, err := handleUserProfile(context.Background(), readRequest(URIProfile), sc)
	require.NoError(t, err)

	data := decode(t, contents)
	assert.Equal(t, "default", data["account"])
	assert.Equal(t, "ci@example.com", data["email"])
	assert.EqualValues(t, 3, data["threadsTotal"])
	assert.EqualValues(t, 9, data["messagesTotal"])
}

func TestHandleUserProfile_NoClient(t *testing.T) {
	sc := newTestServerContext(t, func(context.Context, string) (*gmail.Client, error) {
		return nil, errors.New("no token")
	})

	_, err := handleUserProfile(context.Background(), readRequest(URIProfile), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Gmail client available")
}
