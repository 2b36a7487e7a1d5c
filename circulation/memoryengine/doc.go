// Package memoryengine provides an in-memory implementation of the
// circulation storage contracts, used for tests and ephemeral environments.
// A single mutex serializes mutations, which trivially satisfies the
// per-book reservation atomicity the circulation.Store contract requires.
package memoryengine
