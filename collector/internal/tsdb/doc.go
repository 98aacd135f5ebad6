// Package tsdb is the collector's in-memory sample store. Series are keyed
// by label-set fingerprint and hold samples in ascending timestamp order;
// appends are batched so a scrape commits all of its samples or none of
// them. A background loop evicts samples older than the retention window.
//
// Queries match series by exact metric name and label equality. There is no
// expression language beyond that — the store answers "which series carry
// these labels" and "what were their values in this range", nothing more.
package tsdb
