// Package assistant provides the read-only registry of assistant profiles.
//
// A profile is a named persona configuration: the system prompt, model
// preferences, and routing hints (keywords, task types) the router and
// classifier consult. Profiles are immutable once loaded. The registry hands
// out snapshots: a request takes the snapshot reference at ingress and keeps
// it for its lifetime, so an admin reload never disturbs in-flight requests.
package assistant
