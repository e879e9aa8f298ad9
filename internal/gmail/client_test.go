package gmail

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailplayground/internal/google"
)

const reportSubject = "YARN Daily unit test report"

func TestPageSize(t *testing.T) {
	tests := []struct {
		limit int
		want  int64
	}{
		{0, 100},
		{1, 1},
		{99, 99},
		{100, 100},
		{1000, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pageSize(tt.limit), "limit %d", tt.limit)
	}
}

func TestQueryThreads_Paging(t *testing.T) {
	fake := newFakeGmail()
	fake.addPage(
		testThread("t1", 10, testMessage("m1", "t1", reportSubject, 1_600_000_000_000, textPart("0", "line one\nline two"))),
		testThread("t2", 20, testMessage("m2", "t2", reportSubject, 1_600_000_100_000, textPart("0", "second"))),
	)
	fake.addPage(
		testThread("t3", 30,
			testMessage("m3", "t3", reportSubject, 1_600_000_200_000, textPart("0", "third")),
			testMessage("m4", "t3", "Re: "+reportSubject, 1_600_000_300_000, textPart("0", "reply")),
		),
	)

	client := newTestClient(t, fake)
	threads, err := client.QueryThreads(context.Background(), QueryOptions{
		Query:       `subject:"` + reportSubject + `"`,
		SanityCheck: true,
	})
	require.NoError(t, err)

	require.Len(t, threads, 3)
	assert.Equal(t, "t1", threads[0].ID)
	assert.Equal(t, "t3", threads[2].ID)

	emails := threads.Emails()
	require.Len(t, emails, 4)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, []string{emails[0].ID, emails[1].ID, emails[2].ID, emails[3].ID})
	assert.Equal(t, "t3", emails[3].ThreadID)
	assert.Equal(t, reportSubject, emails[0].Subject)
	assert.True(t, emails[0].Date.Equal(time.UnixMilli(1_600_000_000_000)))

	plain := emails[0].PlainTextParts()
	require.Len(t, plain, 1)
	assert.Equal(t, "line one\nline two", plain[0].Body)

	require.Len(t, fake.listQueries, 2)
	assert.Equal(t, `subject:"`+reportSubject+`"`, fake.listQueries[0].Get("q"))
	assert.Equal(t, "100", fake.listQueries[0].Get("maxResults"))
	assert.Equal(t, "page-1", fake.listQueries[1].Get("pageToken"))
}

func TestQueryThreads_Limit(t *testing.T) {
	fake := newFakeGmail()
	fake.addPage(
		testThread("t1", 1, testMessage("m1", "t1", reportSubject, 1, textPart("0", "a"))),
		testThread("t2", 1, testMessage("m2", "t2", reportSubject, 2, textPart("0", "b"))),
		testThread("t3", 1, testMessage("m3", "t3", reportSubject, 3, textPart("0", "c"))),
	)

	client := newTestClient(t, fake)
	threads, err := client.QueryThreads(context.Background(), QueryOptions{Limit: 2})
	require.NoError(t, err)

	assert.Len(t, threads, 2)
	assert.Equal(t, "2", fake.listQueries[0].Get("maxResults"))
	assert.Equal(t, 0, fake.threadGets["t3"])
}

func TestQueryThreads_Empty(t *testing.T) {
	fake := newFakeGmail()
	client := newTestClient(t, fake)

	threads, err := client.QueryThreads(context.Background(), QueryOptions{Query: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, threads)
	assert.Empty(t, threads.Emails())
}

func TestQueryThreads_AttachmentBody(t *testing.T) {
	fake := newFakeGmail()
	attachmentPart := &gmailapi.MessagePart{
		PartId:   "1",
		MimeType: MimeTypePlainText,
		Body:     &gmailapi.MessagePartBody{AttachmentId: "att-1", Size: 42},
	}
	fake.addPage(testThread("t1", 1, testMessage("m1", "t1", reportSubject, 1, textPart("0", "inline"), attachmentPart)))
	fake.attachments["m1/att-1"] = b64("from attachment")

	client := newTestClient(t, fake)
	threads, err := client.QueryThreads(context.Background(), QueryOptions{})
	require.NoError(t, err)

	plain := threads.Emails()[0].PlainTextParts()
	require.Len(t, plain, 2)
	assert.Equal(t, "inline", plain[0].Body)
	assert.Equal(t, "from attachment", plain[1].Body)
	assert.Equal(t, 1, fake.attachGets)
}

func TestQueryThreads_MissingAttachmentIsNotFatal(t *testing.T) {
	fake := newFakeGmail()
	attachmentPart := &gmailapi.MessagePart{
		PartId:   "0",
		MimeType: MimeTypePlainText,
		Body:     &gmailapi.MessagePartBody{AttachmentId: "gone"},
	}
	fake.addPage(testThread("t1", 1, testMessage("m1", "t1", reportSubject, 1, attachmentPart)))

	client := newTestClient(t, fake)
	threads, err := client.QueryThreads(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", threads.Emails()[0].PlainTextParts()[0].Body)
}

func TestQueryThreads_DecodeErrorKeepsData(t *testing.T) {
	fake := newFakeGmail()
	broken := &gmailapi.MessagePart{
		PartId:   "0",
		MimeType: MimeTypePlainText,
		Body:     &gmailapi.MessagePartBody{Data: "!!not base64!!"},
	}
	fake.addPage(testThread("t1", 1, testMessage("m1", "t1", reportSubject, 1, broken)))

	client := newTestClient(t, fake)
	threads, err := client.QueryThreads(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "!!not base64!!", threads.Emails()[0].PlainTextParts()[0].Body)
}

func TestQueryThreads_Cache(t *testing.T) {
	fake := newFakeGmail()
	fake.addPage(
		testThread("t1", 7, testMessage("m1", "t1", reportSubject, 1, textPart("0", "cached"))),
	)
	cache := newMemCache()
	client := newTestClient(t, fake, WithCache(cache))

	for i := 0; i < 2; i++ {
		threads, err := client.QueryThreads(context.Background(), QueryOptions{})
		require.NoError(t, err)
		assert.Equal(t, "cached", threads.Emails()[0].PlainTextParts()[0].Body)
	}
	assert.Equal(t, 1, fake.threadGets["t1"])
	assert.Equal(t, 1, cache.puts)

	// A changed history id invalidates the cached copy
	fake.threads["t1"].HistoryId = 8
	fake.pages[0][0].HistoryId = 8
	_, err := client.QueryThreads(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.threadGets["t1"])
}

func TestQueryThreads_ThreadNotFound(t *testing.T) {
	fake := newFakeGmail()
	fake.pages = [][]*gmailapi.Thread{{{Id: "missing"}}}

	client := newTestClient(t, fake, WithRateLimiter(google.NewRateLimiter(google.ServiceGmail)))
	_, err := client.QueryThreads(context.Background(), QueryOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, google.ErrNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestGetAttachment_Validation(t *testing.T) {
	client := newTestClient(t, newFakeGmail())

	_, err := client.GetAttachment(context.Background(), "", "a")
	assert.Error(t, err)
	_, err = client.GetAttachment(context.Background(), "m", "")
	assert.Error(t, err)
}

func TestNewClient_Account(t *testing.T) {
	assert.Equal(t, google.DefaultAccount, newTestClient(t, newFakeGmail()).Account())
	assert.Equal(t, "work", newTestClient(t, newFakeGmail(), WithAccount("work")).Account())
}

func TestGetProfile(t *testing.T) {
	fake := newFakeGmail()
	fake.addPage(testThread("t1", 10, testMessage("m1", "t1", reportSubject, 1_600_000_000_000, textPart("0", "x"))))
	client := newTestClient(t, fake)

	profile, err := client.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ci@example.com", profile.EmailAddress)
	assert.EqualValues(t, 1, profile.ThreadsTotal)
	assert.EqualValues(t, 42, profile.HistoryId)
}

func TestGetThread_SpanCarriesThreadID(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	fake := newFakeGmail()
	fake.addPage(testThread("t1", 1, testMessage("m1", "t1", reportSubject, 1, textPart("0", "body"))))

	client := newTestClient(t, fake)
	_, err := client.GetThread(context.Background(), "t1", 0)
	require.NoError(t, err)

	var found bool
	for _, span := range exporter.GetSpans() {
		if span.Name != "google.gmail.threads.get" {
			continue
		}
		for _, attr := range span.Attributes {
			if string(attr.Key) == "gmail.thread_id" {
				assert.Equal(t, "t1", attr.Value.AsString())
				found = true
			}
		}
	}
	assert.True(t, found, "threads.get span should carry the thread id")
}

func TestQueryThreads_EmptyBodyWithoutAttachmentIsLogged(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	fake := newFakeGmail()
	fake.addPage(testThread("t1", 1, testMessage("m1", "t1", reportSubject, 1, textPart("0", "first"), textPart("1", ""))))

	client := newTestClient(t, fake)
	threads, err := client.QueryThreads(context.Background(), QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, fake.attachGets)
	assert.Len(t, threads.Emails()[0].PlainTextParts(), 2)
	assert.Contains(t, buf.String(), "skipping empty body without attachment id")
	assert.Contains(t, buf.String(), "part_id=1")
	assert.Contains(t, buf.String(), "m1")
}
