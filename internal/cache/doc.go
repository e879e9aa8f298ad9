// Package cache stores full Gmail threads in a local SQLite database.
//
// A cached thread is only served while its history id matches the one the
// thread listing reports, so any change to the thread (new message, label
// change) causes a refetch.
package cache
