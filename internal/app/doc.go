// Package app assembles the attribution engine: configuration, logging,
// the durable store, the tracking singletons, and the optional host
// event subscription, plus the sidecar's run loop.
package app
