// Package lives composes observable cells.
//
// A cell holds at most one current value and pushes every new value to its
// subscribers; a late subscriber gets the current value straight away.
// Combinators such as Merge, StartWith, Zip and Concat build derived cells
// out of other cells with a Mediator, which adopts the sources and decides
// what to publish each time one of them emits.
//
// Single-delivery cells hand each value to a subscriber at most once and
// never replay a value somebody already consumed. Concat is built on them.
package lives
