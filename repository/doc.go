// Package repository provides a generic repository abstraction built on Bun
// for CRUD operations, predicate queries, pagination and transactions, plus a
// repository factory that attaches a projection executor to repository
// interfaces declaring PredicateProjectionExecutor.
package repository
