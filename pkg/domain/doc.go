/*
Package domain contains the core model for transfer planning and execution.

It defines the vocabulary the rest of the library speaks: commands, transfer
options, volume and well-sequence request forms, compiled plans and persisted
run records. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Command: one primitive pipetting operation (a sealed tagged union).
  - TransferOptions: the immutable policy bundle a plan is built under.
  - VolumeSpec / WellSeq: the declarative sides of a transfer request.
  - Plan: a lazily produced, ordered command sequence.
  - RunRecord: the persisted outcome of one protocol run.
*/
package domain
