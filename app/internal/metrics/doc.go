// Package metrics owns the application's Prometheus registry and the HTTP
// middleware that feeds it. Each process gets an isolated registry with the
// Go and process collectors registered and a constant service label, so two
// instrumented binaries never collide on metric names.
//
// Handler() serves the registry in the text exposition format. Reading it
// has no side effects on business state.
package metrics
