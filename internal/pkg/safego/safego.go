// Package safego launches background goroutines that recover from panics.
package safego

import "github.com/rs/zerolog/log"

// Go runs fn in a new goroutine. A panic inside fn is recovered and logged
// instead of taking down the process.
func Go(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// Recover is meant to be deferred by code that must not propagate panics.
func Recover(name string) {
	if r := recover(); r != nil {
		log.Error().Str("task", name).Interface("panic", r).Msg("recovered panic in background goroutine")
	}
}
