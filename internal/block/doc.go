// Package block provides the block model for the redstone simulator.
//
// A Block is a tagged variant: Kind selects which of the state fields are
// meaningful. The kind set is closed. Every consumer dispatches on Kind with an
// exhaustive switch, so adding a kind is a compile-and-review change in the
// resolver, the scheduler and the observable projection, never a registry
// lookup.
//
// Positions are dragonfly cube.Pos values and directions are cube.Face values.
// This package imports nothing internal; every other package builds on it.
package block
