// Package testing provides the conformance suite for backend.IBackend
// implementations.
//
// The suite checks open modes, navigation, insertion order of children and
// attributes, the three dataset layouts, compression filters, persistence
// across reopen, read-only sessions, CopyTo and the closed state.
//
// Example usage:
//
//	backendtesting.RunBackendTests(t, "tables", func(t testing.TB) backendtesting.Fixture {
//		dir := t.TempDir()
//		return backendtesting.Fixture{
//			Driver: tables.NewDriver(),
//			Path:   func(name string) string { return filepath.Join(dir, name) },
//		}
//	})
package testing
