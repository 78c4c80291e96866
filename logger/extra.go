package logger

import (
	"fmt"

	"github.com/Agnonimoose/jogger/core"
)

// Call-site helpers for building extras bags.

// F builds a single-entry extras bag.
func F(key string, value any) core.Extra {
	return core.Extra{key: value}
}

// Err builds an extras bag carrying an error under the "error" key.
// A nil error yields an empty bag.
func Err(err error) core.Extra {
	if err == nil {
		return core.Extra{}
	}
	return core.Extra{"error": err}
}

// Fields collects alternating key/value pairs into an extras bag.
// Non-string keys are rendered with fmt.Sprint; a trailing key without
// a value is ignored.
func Fields(kv ...any) core.Extra {
	e := make(core.Extra, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		e[k] = kv[i+1]
	}
	return e
}
