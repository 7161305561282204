// Package testing provides a reusable test and benchmark suite for
// store.IStore implementations. The suite exercises only the public
// interface, so it doubles as a conformance check for any future engine.
//
// Usage:
//
//	func Test(t *testing.T) {
//		storetesting.RunStoreTests(t, "PStore", func(name string) store.IStore {
//			return pstore.New(&pstore.Options{Name: name})
//		})
//	}
package testing
