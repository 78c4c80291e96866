// Package core defines the shared types used across the jogger framework.
//
// It provides the Level type for severity filtering, the Record type that
// represents a single log event with its full attribute set, and the
// Extra type for the open-ended attribute bag callers attach to records.
//
// Record objects are pooled via sync.Pool to keep the hot path
// allocation-free. Callers get a Record with GetRecord and must
// return it with PutRecord once the handler has consumed it. The pool
// pre-allocates the Extra map with capacity 8, which covers most
// log calls without triggering a map growth.
//
// Built-in record attributes carry the fixed names listed in
// ReservedAttrs. Record.Attr resolves those names to their live values,
// so formatters can address metadata and extras through one lookup path.
package core
