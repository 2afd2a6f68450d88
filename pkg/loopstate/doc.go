/*
Package loopstate makes long-running iteration resumable across process
restarts.

# Overview

loopstate wraps a sequence in an iterator that checkpoints its progress
to a file. On clean exhaustion the checkpoint is erased; on interruption
(an error, or the consumer abandoning the loop) the remaining items are
persisted so the next run continues from the same point instead of
restarting.

The library provides:
  - Type-safe generic iterators over any sequence
  - A streaming, memory-bounded checkpoint format (safe mode) and a
    whole-object binary format (unsafe mode)
  - A requeueing variant that replays the in-flight item on resume
  - A file-position tracker that resumes reading at an exact line boundary
  - OpenTelemetry integration for observability

# Basic Usage

Wrap a sequence, consume it, and report how the loop ended:

	it, err := loopstate.FromSlice("loopy", []int{0, 1, 2, 3, 4})
	if err != nil {
	    log.Fatal(err)
	}
	err = loopstate.Each(it, func(v int) error {
	    return process(v) // a returned error persists the rest
	})

Each drives the loop and closes the iterator exactly once: normal return
maps to Completed (checkpoint erased), an error or loopstate.ErrStop maps
to Interrupted (remaining items persisted). A later run constructed
against the same path resumes from the persisted tail.

# Completion Status

When driving the loop manually, the consumer must report how it ended,
because "finished without error" and "abandoned without error" are
different outcomes:

	for it.Next() {
	    if shouldStop(it.Item()) {
	        return it.Close(loopstate.Interrupted) // persist the rest
	    }
	}
	if err := it.Err(); err != nil {
	    it.Close(loopstate.Interrupted)
	    return err
	}
	return it.Close(loopstate.Completed) // erase the checkpoint

# Safe and Unsafe Modes

Safe mode (the default) streams one compact JSON record per remaining
item, so persistence is memory-bounded, but every item and auxiliary
value must be JSON-representable. Unsafe mode gob-encodes the auxiliary
state and the fully materialized tail as one binary blob: it handles
values JSON cannot express, but requires the whole tail in memory and
must only ever decode trusted input. Treat unsafe checkpoints like any
other binary deserialization surface.

# Requeueing

RequeueIterator tracks the item currently being processed and puts it
back at the head of the persisted tail on interruption, so the item the
consumer was working on is retried on the next run rather than silently
lost.

# Caveats

Checkpoint files are single-writer: two processes sharing a checkpoint
path corrupt it (last write wins, no locking). Nothing verifies that a
freshly supplied sequence and a resumed checkpoint represent the same
logical data; resume precedence is a caller contract.
*/
package loopstate
