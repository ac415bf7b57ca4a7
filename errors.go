package i3m

import "fmt"

// SerializationError reports a document that cannot be encoded.
type SerializationError struct {
	Node  string // slash-separated path of node names
	Field string
	Value float32
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return "i3m: serialize: " + e.Err.Error()
	}
	return fmt.Sprintf("i3m: node %q: non-finite %s (%v)", e.Node, e.Field, e.Value)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// IOError reports a destination that could not be created or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "i3m: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }
