package sentinel

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an error type backed by a string constant. Unlike errors.New,
// which returns a pointer that must live in a var, Error values can be
// declared as const, so sentinel errors cannot be reassigned at runtime.
//
// Because Error is a comparable type, the default == comparison used by
// errors.Is matches it correctly through wrapped error chains.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
