// Package store persists the board's configuration records — users, data
// sources, and dashboards — in a SQLite database. These entities are
// created by the operator and mutated only by the operator; the store is
// plain CRUD with no caching layer on top.
package store
