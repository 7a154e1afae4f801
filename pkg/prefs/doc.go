// Package prefs implements delivery preferences and the resolver that
// merges a user's global and job-scoped preference rows into one effective
// preference set.
//
// Preference rows are partial by design: every field is optional, and a
// job-scoped row overrides only the fields it explicitly sets, inheriting
// everything else from the global row. When neither row exists (or storage
// is unreachable) the resolver degrades to safe defaults so no event is
// silently dropped.
//
// # Basic Usage
//
//	resolver := prefs.NewResolver(storage)
//	eff := resolver.Resolve(ctx, "usr-1", prefs.JobScope("job-9"))
//	if eff.InQuietHours(time.Now()) { ... }
package prefs
