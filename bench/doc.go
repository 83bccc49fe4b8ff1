// Package bench drives load against an LLM-backed translation/summarization
// endpoint and measures throughput, latency, and latency decomposition.
//
// The package provides two dispatch disciplines (fixed concurrency and
// Poisson-paced QPS arrivals), a stats aggregator over per-request outcomes,
// and a quality-evaluation flow that shares a persistent result cache
// (bench/cache) with the benchmark path.
package bench
