package regalloc

import (
	"errors"
	"fmt"
)

// ErrInternal marks internal compiler errors: states the allocator should
// never reach, such as a virtual register left without a location. They
// abort allocation of the function.
var ErrInternal = errors.New("internal compiler error")

// InternalError reports an internal compiler error in one function.
type InternalError struct {
	Func string
	Msg  string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInternal, e.Func, e.Msg)
}

func (e *InternalError) Unwrap() error {
	return ErrInternal
}

func (a *Allocator) internalf(format string, args ...any) error {
	return &InternalError{Func: a.fn.Name, Msg: fmt.Sprintf(format, args...)}
}
