package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*options)

type options struct {
	capacity int
	observe  func(size int)
}

// WithCapacity sets the maximum number of waiting items.
func WithCapacity(capacity int) Option {
	return func(o *options) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}

// WithSizeObserver is called with the queue length after every change.
func WithSizeObserver(fn func(size int)) Option {
	return func(o *options) {
		if fn != nil {
			o.observe = fn
		}
	}
}
