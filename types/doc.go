// Package types holds the value types shared by the repository layer:
// sorting, paging, enums and JSON column types.
package types
