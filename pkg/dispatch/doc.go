// Package dispatch fans arbitration decisions out to subscribers.
//
// Delivery is decoupled from the ingestion path through a bounded queue
// drained by a single worker goroutine, so a slow subscriber can never
// stall arbitration. When the queue is full the event is dropped and
// counted rather than blocking the publisher.
//
// Subscribers filter by device identifier, by connectability, or with an
// arbitrary predicate. Unavailability events match on device only.
package dispatch
