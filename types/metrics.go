package types

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the cache lifecycle. The store and the
retrieve-or-fetch service call these methods whenever something happens.
*/
type Metrics interface {

	// Request is called once per retrieve-or-fetch call, before anything else.
	Request()

	// Hit is called when a fresh cached value is returned without fetching.
	Hit()

	// Miss is called when the value has to be fetched.
	Miss()

	// Error is called when a retrieve-or-fetch call ends in a failure.
	Error()

	// Expire is called when an entry is dropped because its TTL elapsed.
	Expire()

	// Eviction is called when an entry is dropped because its namespace is full.
	Eviction()
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

It lets the store run without a metrics sink and without nil checks
on every hot path.
*/
type NoopMetrics struct{}

func (NoopMetrics) Request()  {}
func (NoopMetrics) Hit()      {}
func (NoopMetrics) Miss()     {}
func (NoopMetrics) Error()    {}
func (NoopMetrics) Expire()   {}
func (NoopMetrics) Eviction() {}
