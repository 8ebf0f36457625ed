/*
Package runs coordinates protocol run records.

It serializes access per run ID so concurrent hosts never interleave
read-modify-write cycles on the same record, integrating per-run local
locks with optional distributed locking and the persistent run stores.
*/
package runs
