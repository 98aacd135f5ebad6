// Package config loads the collector's YAML configuration: a global section
// (scrape interval, scrape timeout, retention, listen port) and a list of
// scrape jobs with static targets. Watch re-loads the file on change so
// targets can be added or removed without restarting the process.
package config
