package util

import "fmt"

// CatchPanic runs fn, converting a panic into an error. A recovered error
// value passes through unchanged; any other panic value is wrapped around
// baseErr
func CatchPanic[T any](baseErr error, fn func() (T, error)) (res T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(error)
		if ok {
			err = e
			return
		}
		err = fmt.Errorf("%w: %v", baseErr, r)
	}()
	return fn()
}
