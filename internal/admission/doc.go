// Package admission decides whether an outbound call may be dispatched.
//
// A Controller combines a token bucket (golang.org/x/time/rate) with an optional
// bound on in-flight calls. A refused call yields a *RejectedError, which the
// dispatch layer reports as an admission rejection rather than a provider failure.
//
// Every decision is recorded best-effort to a StatsStore. MemoryStatsStore keeps
// counters in process; RedisStatsStore increments hash counters in Redis.
package admission
