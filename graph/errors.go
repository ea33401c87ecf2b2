package graph

import "fmt"

// LoadError reports a graph file that could not be read or parsed. The
// store is unusable after a failed load.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// QueryError reports a query that failed to parse, compile or execute. Its
// message is the underlying parser or engine message.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string { return e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }
