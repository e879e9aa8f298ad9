package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
)

// fakeGmail serves the subset of the Gmail API used by Client.
type fakeGmail struct {
	mu          sync.Mutex
	pages       [][]*gmailapi.Thread
	threads     map[string]*gmailapi.Thread
	attachments map[string]string
	listQueries []url.Values
	threadGets  map[string]int
	attachGets  int
}

func newFakeGmail() *fakeGmail {
	return &fakeGmail{
		threads:     map[string]*gmailapi.Thread{},
		attachments: map[string]string{},
		threadGets:  map[string]int{},
	}
}

// addPage adds a listing page of the given full threads.
func (f *fakeGmail) addPage(threads ...*gmailapi.Thread) {
	var page []*gmailapi.Thread
	for _, th := range threads {
		f.threads[th.Id] = th
		page = append(page, &gmailapi.Thread{Id: th.Id, HistoryId: th.HistoryId})
	}
	f.pages = append(f.pages, page)
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/")
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1 && parts[0] == "profile":
		writeJSON(w, gmailapi.Profile{EmailAddress: "ci@example.com", ThreadsTotal: int64(len(f.threads)), HistoryId: 42})
	case len(parts) == 1 && parts[0] == "threads":
		f.listQueries = append(f.listQueries, r.URL.Query())
		idx := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			idx, _ = strconv.Atoi(strings.TrimPrefix(tok, "page-"))
		}
		res := gmailapi.ListThreadsResponse{}
		if idx < len(f.pages) {
			res.Threads = f.pages[idx]
		}
		if idx+1 < len(f.pages) {
			res.NextPageToken = "page-" + strconv.Itoa(idx+1)
		}
		writeJSON(w, res)
	case len(parts) == 2 && parts[0] == "threads":
		th, ok := f.threads[parts[1]]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		f.threadGets[parts[1]]++
		writeJSON(w, th)
	case len(parts) == 4 && parts[0] == "messages" && parts[2] == "attachments":
		f.attachGets++
		data, ok := f.attachments[parts[1]+"/"+parts[3]]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, gmailapi.MessagePartBody{Data: data, Size: int64(len(data))})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeGmail, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithEndpoint(srv.URL + "/")}, opts...)
	client, err := NewClient(context.Background(), srv.Client(), opts...)
	require.NoError(t, err)
	return client
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func textPart(id, body string) *gmailapi.MessagePart {
	return &gmailapi.MessagePart{
		PartId:   id,
		MimeType: MimeTypePlainText,
		Body:     &gmailapi.MessagePartBody{Data: b64(body), Size: int64(len(body))},
	}
}

func testMessage(id, threadID, subject string, internalDate int64, parts ...*gmailapi.MessagePart) *gmailapi.Message {
	return &gmailapi.Message{
		Id:           id,
		ThreadId:     threadID,
		InternalDate: internalDate,
		Snippet:      "snippet of " + id,
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "jenkins@example.com"},
				{Name: "Subject", Value: subject},
			},
			Body:  &gmailapi.MessagePartBody{},
			Parts: parts,
		},
	}
}

func testThread(id string, historyID uint64, messages ...*gmailapi.Message) *gmailapi.Thread {
	return &gmailapi.Thread{Id: id, HistoryId: historyID, Messages: messages}
}

// memCache is an in-memory ThreadCache.
type memCache struct {
	mu      sync.Mutex
	threads map[string]*gmailapi.Thread
	puts    int
}

func newMemCache() *memCache {
	return &memCache{threads: map[string]*gmailapi.Thread{}}
}

func (m *memCache) Get(_ context.Context, id string, historyID uint64) (*gmailapi.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	th := m.threads[id]
	if th == nil || th.HistoryId != historyID {
		return nil, nil
	}
	return th, nil
}

func (m *memCache) Put(_ context.Context, th *gmailapi.Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[th.Id] = th
	m.puts++
	return nil
}
