/*
Package observability provides Prometheus instrumentation for plan runs.

It exposes the collectors as executor hooks, so command counts, dispensed
volume, tip usage and run durations are recorded without the executor
knowing about metrics at all.
*/
package observability
