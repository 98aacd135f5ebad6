// Package types defines the shared wire types exchanged between
// pulse-collector's query API and pulse-board's query client: label sets,
// samples, series, and the JSON response envelopes. Both ends of the query
// contract depend on this package so they cannot drift apart.
package types
