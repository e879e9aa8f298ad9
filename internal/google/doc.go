// Package google provides OAuth2 authentication and request pacing for the Google APIs
// used by gmailplayground (Gmail, Sheets and Drive).
//
// Two kinds of credential files are supported:
//   - OAuth client secrets ("installed" application). The user authorizes once with
//     `gmailplayground auth`; the token is cached per account under the user cache
//     directory (~/.cache/gmailplayground/google-<account>.token) and refreshed
//     automatically.
//   - Service account keys. These need no interactive step and are what the Google
//     Sheet export usually uses.
//
// The package also classifies googleapi errors and provides a token-bucket rate
// limiter with backoff for 429 responses.
package google
