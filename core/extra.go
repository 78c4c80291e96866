package core

// Extra is the open-ended attribute bag callers attach to a record in
// addition to the built-in attributes. Keys that collide with the
// reserved attribute names are ignored when formatters merge extras.
type Extra map[string]any

// Merge returns a new Extra containing this bag's entries overlaid with
// the other bag's entries. Neither input is modified.
func (e Extra) Merge(other Extra) Extra {
	merged := make(Extra, len(e)+len(other))
	for k, v := range e {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Clone returns a shallow copy of the bag.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	c := make(Extra, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}
