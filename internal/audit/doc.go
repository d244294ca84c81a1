// Package audit defines the internal audit event model and the buffered
// dispatcher that forwards events to caller-supplied sinks. The root
// package re-exports the public pieces; nothing here performs I/O beyond
// what a sink does.
package audit
