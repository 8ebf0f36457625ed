/*
Package ports defines the driven ports (interfaces) for the Aliquot core.

These interfaces decouple transfer planning and execution from external
implementations, allowing the executor to drive real or simulated hardware
and persist run records to various storage backends.

# Key Interfaces

  - Instrument: Responsible for performing liquid-handling primitives (a simulator or a hardware driver).
  - RunStore: Responsible for persisting and loading RunRecords.
  - DistributedLocker: Provides distributed locking for handling concurrent run access.
*/
package ports
