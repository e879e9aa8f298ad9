// Package gmail queries Gmail threads and converts their messages into
// decoded body parts.
//
// QueryThreads lists the threads matching a Gmail search query, fetches every
// thread in full format (from the thread cache when its history id is
// unchanged), flattens the MIME tree of each message and base64-decodes every
// part body. Bodies that Gmail stores as external attachments are fetched
// with messages.attachments.get.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, httpClient,
//		gmail.WithRateLimiter(google.NewRateLimiter(google.ServiceGmail)))
//	if err != nil {
//		return err
//	}
//
//	threads, err := client.QueryThreads(ctx, gmail.QueryOptions{
//		Query:       `subject:"YARN Daily unit test report"`,
//		Limit:       100,
//		SanityCheck: true,
//	})
//	if err != nil {
//		return err
//	}
//	for _, email := range threads.Emails() {
//		for _, part := range email.PlainTextParts() {
//			fmt.Println(part.Body)
//		}
//	}
package gmail
