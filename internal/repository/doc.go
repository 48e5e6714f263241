// Package repository implements MySQL persistence for layouts, sections,
// tables and the service history ledger.  Each repository owns one aggregate
// and exposes a not-found sentinel for it; ownership is enforced in the
// queries themselves by joining through layouts.owner_user_id, so a record
// belonging to a different operator is indistinguishable from a missing one.
package repository
