// Package engine implements the tick-stepped update scheduler.
//
// ARCHITECTURE:
//
// Double Buffering:
// Every tick reads a frozen snapshot of the previous tick and writes a fresh
// next buffer. No block ever reads a value written in the same tick, except
// consumers (see below). Iteration order therefore cannot affect results;
// positions are still visited in ascending order so logs are reproducible.
// Feedback loops are legal circuits. A loop resolves to a fixed latency per
// tick instead of being iterated to a fixed point.
//
// Per-tick flow (Engine.Step):
//  1. Pop edits due at t and write them into next. Edited positions are not
//     re-derived this tick.
//  2. Derive every non-consumer (dust, repeater, comparator, torch, button,
//     lever) from the snapshot. Work is partitioned by connected component
//     and may run on an errgroup worker pool; each worker writes only its own
//     slots, and Wait is the barrier.
//  3. Evaluate consumers (lamp, piston, hopper) against next. Consumers have
//     no outputs, so reading next cannot create an ordering dependency, and
//     lamps never lag their inputs.
//  4. Swap buffers and report every touched position.
//
// Settling:
// A tick is settled when no block changed at all, internal counters
// included, and no edit is scheduled later. A button still counting down or
// a repeater mid-delay is not settled even though nothing observable moved.
//
// Quirks:
// Behaviour that differs between editions arrives through quirks.Policy
// flags. There are no per-version code paths.
package engine
