// Package cpupool provides the bounded worker pool that offloads
// CPU-bound encryption work from the goroutines driving network I/O.
package cpupool
