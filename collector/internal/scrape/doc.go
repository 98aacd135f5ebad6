// Package scrape runs the collector's pull loops. Each configured target
// gets its own goroutine and ticker, so a slow or unreachable target never
// delays the others. One cycle walks
//
//	Pending → Scraping → {Success, Failure} → Pending
//
// On success the full exposition body is parsed first and then committed to
// the store as one batch together with the synthetic up=1 and
// scrape_duration_seconds series. On any failure (timeout, refused
// connection, non-200 status, parse error) nothing from the body is
// committed, up=0 is recorded, and the loop simply waits for its next tick.
//
// The Manager owns the loops and diffs a reloaded config against them:
// removed targets stop scraping while their history stays in the store.
package scrape
