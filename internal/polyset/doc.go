// Package polyset is the facade over the integer-set/relation library the
// planner is built on.
//
// Memory-bank partitioning planners of this kind are usually built on isl
// and pet, a C polyhedral-set library and a source-to-polyhedral-model
// extractor. Neither has a maintained Go binding, so this package is the
// stand-in: it implements space allocation, set and relation construction,
// constraint building, apply_range, domain/range restriction, bounded point
// enumeration, lex ordering, parameter projection, and schedule-tree
// traversal — and nothing more. Every type here is a plain value with
// explicit Clone semantics; there is no reference counting to mirror from
// isl's copy/free calls because Go already has value and garbage-collected
// reference semantics.
package polyset
