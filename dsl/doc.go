// Package dsl is a small typed query vocabulary on top of Bun: entity paths
// resolved from Bun table metadata, composable predicates, order specifiers
// and constructor projections that materialize rows into arbitrary types.
//
// Every expression renders through Bun's formatter, so values are quoted by
// the active dialect and paths become quoted identifiers.
package dsl
