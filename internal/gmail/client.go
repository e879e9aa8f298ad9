package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/instrumentation"
	"github.com/teemow/gmailplayground/internal/logging"
)

const (
	// DefaultPageSize is the page size of thread listings.
	DefaultPageSize = 100

	userMe     = "me"
	formatFull = "full"
)

// ThreadCache stores full threads keyed by thread id and history id.
// Get returns nil without error on a miss.
type ThreadCache interface {
	Get(ctx context.Context, threadID string, historyID uint64) (*gmailapi.Thread, error)
	Put(ctx context.Context, thread *gmailapi.Thread) error
}

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmailapi.UsersService
	account string
	caller  google.Caller
	cache   ThreadCache
	metrics *instrumentation.Metrics
}

type clientOptions struct {
	account  string
	endpoint string
	limiter  *google.RateLimiter
	cache    ThreadCache
	metrics  *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*clientOptions)

// WithAccount sets the account name the client is associated with.
func WithAccount(account string) Option {
	return func(o *clientOptions) { o.account = account }
}

// WithEndpoint overrides the Gmail API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

// WithRateLimiter throttles API calls and enables retries of rate limited calls.
func WithRateLimiter(limiter *google.RateLimiter) Option {
	return func(o *clientOptions) { o.limiter = limiter }
}

// WithCache serves unchanged threads from cache.
func WithCache(cache ThreadCache) Option {
	return func(o *clientOptions) { o.cache = cache }
}

// WithMetrics records API and thread metrics.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = metrics }
}

// NewClient creates a Gmail client on top of an authorized HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	o := clientOptions{account: google.DefaultAccount}
	for _, opt := range opts {
		opt(&o)
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	svc, err := gmailapi.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		account: o.account,
		caller: google.Caller{
			Service: google.ServiceGmail,
			Limiter: o.limiter,
			Metrics: o.metrics,
		},
		cache:   o.cache,
		metrics: o.metrics,
	}, nil
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// GetProfile returns the mailbox profile of the authorized user.
func (c *Client) GetProfile(ctx context.Context) (*gmailapi.Profile, error) {
	var profile *gmailapi.Profile
	err := c.caller.Do(ctx, instrumentation.OperationGetProfile, func(ctx context.Context) error {
		var err error
		profile, err = c.svc.GetProfile(userMe).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// QueryOptions controls QueryThreads.
type QueryOptions struct {
	// Query is a Gmail search query.
	Query string
	// Limit is the maximum number of threads to process; 0 means no limit.
	Limit int
	// SanityCheck warns about threads whose messages have different subjects.
	SanityCheck bool
}

func pageSize(limit int) int64 {
	if limit > 0 && limit < DefaultPageSize {
		return int64(limit)
	}
	return DefaultPageSize
}

// QueryThreads lists the threads matching opts.Query page by page and
// converts every message of every thread. Processing stops once more than
// opts.Limit threads were seen.
func (c *Client) QueryThreads(ctx context.Context, opts QueryOptions) (Threads, error) {
	cc := &conversionContext{progress: Progress{Limit: opts.Limit}}
	threads := Threads{}
	defer func() {
		cc.handleDecodeErrors()
		c.metrics.RecordThreadsProcessed(ctx, len(threads))
	}()

	pageToken := ""
	for {
		var res *gmailapi.ListThreadsResponse
		err := c.caller.Do(ctx, instrumentation.OperationThreadsList, func(ctx context.Context) error {
			req := c.svc.Threads.List(userMe).Context(ctx).MaxResults(pageSize(opts.Limit))
			if opts.Query != "" {
				req = req.Q(opts.Query)
			}
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list threads: %w", err)
		}

		cc.progress.registerPage(len(res.Threads))
		for _, listed := range res.Threads {
			if listed == nil {
				continue
			}
			cc.progress.Processed++
			if cc.progress.limitReached() {
				slog.Warn("reached limit, stop processing more threads", slog.Int("limit", opts.Limit))
				return threads, nil
			}
			slog.Debug(fmt.Sprintf("Processing threads: %d / %d", cc.progress.Processed, cc.progress.Received))

			thread, err := c.processThread(ctx, cc, listed, opts.SanityCheck)
			if err != nil {
				return nil, err
			}
			threads = append(threads, thread)
		}

		if res.NextPageToken == "" {
			return threads, nil
		}
		pageToken = res.NextPageToken
	}
}

func (c *Client) processThread(ctx context.Context, cc *conversionContext, listed *gmailapi.Thread, sanityCheck bool) (Thread, error) {
	full, err := c.GetThread(ctx, listed.Id, listed.HistoryId)
	if err != nil {
		return Thread{}, err
	}

	messages := make([]Message, 0, len(full.Messages))
	for _, m := range full.Messages {
		if m == nil {
			continue
		}
		messages = append(messages, parseMessage(m))
	}

	thread := cc.convertThread(full.Id, messages)
	c.resolveEmptyBodies(ctx, cc, &thread)
	if sanityCheck {
		checkSubjects(thread)
	}
	return thread, nil
}

// GetThread retrieves a full Gmail thread. When a cache is configured and
// historyID is non-zero, an unchanged cached copy is returned instead.
func (c *Client) GetThread(ctx context.Context, threadID string, historyID uint64) (*gmailapi.Thread, error) {
	useCache := c.cache != nil && historyID != 0
	if useCache {
		cached, err := c.cache.Get(ctx, threadID, historyID)
		switch {
		case err != nil:
			slog.Warn("thread cache lookup failed", logging.ThreadID(threadID), logging.Err(err))
		case cached != nil:
			c.metrics.RecordCacheLookup(ctx, instrumentation.CacheHit)
			slog.Debug("thread served from cache", logging.ThreadID(threadID))
			return cached, nil
		default:
			c.metrics.RecordCacheLookup(ctx, instrumentation.CacheMiss)
		}
	}

	var thread *gmailapi.Thread
	err := c.caller.Do(ctx, instrumentation.OperationThreadsGet, func(ctx context.Context) error {
		var err error
		thread, err = c.svc.Threads.Get(userMe, threadID).Format(formatFull).Context(ctx).Do()
		return err
	}, instrumentation.NewSpanAttributeBuilder().WithThreadID(threadID).Build()...)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}

	if useCache {
		if err := c.cache.Put(ctx, thread); err != nil {
			slog.Warn("failed to cache thread", logging.ThreadID(threadID), logging.Err(err))
		}
	}
	return thread, nil
}

// resolveEmptyBodies fetches the attachment of every registered empty body
// and stores the decoded content in thread.
func (c *Client) resolveEmptyBodies(ctx context.Context, cc *conversionContext, thread *Thread) {
	for _, ref := range cc.emptyBodies {
		if ref.attachmentID == "" {
			slog.Debug("skipping empty body without attachment id",
				logging.MessageID(ref.messageID),
				slog.String("part_id", ref.partID))
			continue
		}
		if ref.messageID == "" {
			slog.Error("message id and attachment id are both required to fetch an attachment",
				slog.String("attachment_id", ref.attachmentID),
				slog.String("part_id", ref.partID))
			continue
		}
		body, err := c.GetAttachment(ctx, ref.messageID, ref.attachmentID)
		if err != nil {
			slog.Error("failed to resolve empty body from attachment",
				logging.MessageID(ref.messageID),
				slog.String("part_id", ref.partID),
				logging.Err(err))
			continue
		}
		thread.Emails[ref.email].BodyParts[ref.part].Body = body
	}
	cc.emptyBodies = nil
}

// checkSubjects warns when messages of a thread do not share the subject of
// the first message, ignoring reply and forward prefixes.
func checkSubjects(thread Thread) bool {
	if len(thread.Emails) == 0 {
		return true
	}
	want := normalizeSubject(thread.Emails[0].Subject)
	ok := true
	for _, e := range thread.Emails[1:] {
		if got := normalizeSubject(e.Subject); got != want {
			slog.Warn("thread contains messages with different subjects",
				logging.ThreadID(thread.ID),
				logging.MessageID(e.ID),
				slog.String("expected", want),
				slog.String("actual", got))
			ok = false
		}
	}
	return ok
}
