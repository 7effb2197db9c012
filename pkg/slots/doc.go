// Package slots implements the finite-capacity connection slot ledger.
//
// Radio adapters sustain only a handful of simultaneous connections, so
// a slot must be allocated before any connection attempt and released
// afterward. Grants are decided synchronously against current ledger
// state: there is no internal queueing, and a request that cannot be
// satisfied fails immediately so the caller owns retry policy.
//
// Two failure conditions are kept distinct so callers can tell "all
// busy" from "none are capable": ErrCapacityExhausted means every
// connectable candidate was saturated or offline, ErrNoConnectableCandidate
// means no connectable observer sees the device at all.
//
// Tokens are opaque handles bound to (observer, device, requester).
// Releasing an unknown or already-released token is a no-op. When an
// observer deregisters, all its tokens are force-released and the
// configured handler is told about each one.
package slots
