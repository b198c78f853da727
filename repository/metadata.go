/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tomoncle/hummerx/dsl"
	"github.com/tomoncle/hummerx/types"
	"github.com/uptrace/bun/dialect"
)

// LockMode is the row lock a query takes.
type LockMode int

const (
	LockNone LockMode = iota
	// LockOptimistic relies on version columns and adds nothing to the query.
	LockOptimistic
	LockPessimisticRead
	LockPessimisticWrite
	LockPessimisticWriteNoWait
)

var _ types.BaseEnum = LockNone

func (m LockMode) IsValid() bool { return m >= LockNone && m <= LockPessimisticWriteNoWait }

func (m LockMode) Number() int {
	if !m.IsValid() {
		return types.IllegalValue
	}
	return int(m)
}

func (m LockMode) Name() string {
	switch m {
	case LockNone:
		return "NONE"
	case LockOptimistic:
		return "OPTIMISTIC"
	case LockPessimisticRead:
		return "PESSIMISTIC_READ"
	case LockPessimisticWrite:
		return "PESSIMISTIC_WRITE"
	case LockPessimisticWriteNoWait:
		return "PESSIMISTIC_WRITE_NOWAIT"
	default:
		return types.IllegalName
	}
}

func (m LockMode) String() string { return m.Name() }

func (m LockMode) Desc() string {
	switch m {
	case LockNone:
		return "no lock"
	case LockOptimistic:
		return "optimistic, version checked on write"
	case LockPessimisticRead:
		return "shared row lock"
	case LockPessimisticWrite:
		return "exclusive row lock"
	case LockPessimisticWriteNoWait:
		return "exclusive row lock, fail instead of waiting"
	default:
		return types.IllegalDesc
	}
}

// forClause returns the FOR clause of the lock on the given dialect. ok is
// false when the lock adds nothing or the dialect has no row locks.
func (m LockMode) forClause(name dialect.Name) (clause string, ok bool) {
	if name != dialect.PG && name != dialect.MySQL {
		return "", false
	}
	switch m {
	case LockPessimisticRead:
		return "SHARE", true
	case LockPessimisticWrite:
		return "UPDATE", true
	case LockPessimisticWriteNoWait:
		return "UPDATE NOWAIT", true
	default:
		return "", false
	}
}

// Query hint names understood by the executor.
const (
	// HintFetchGraph joins a to-one relation; the value is the Bun relation
	// name. Entity graphs are turned into these hints.
	HintFetchGraph = "hummerx.fetchgraph"
	// HintUseIndex, HintForceIndex and HintIgnoreIndex take an index name
	// or a []string of names. Only MySQL renders them.
	HintUseIndex    = "hummerx.mysql.use_index"
	HintForceIndex  = "hummerx.mysql.force_index"
	HintIgnoreIndex = "hummerx.mysql.ignore_index"
)

// EntityGraph lists to-one relations ("author", "author.profile") to join
// into queries.
type EntityGraph struct {
	Name  string
	Paths []string
}

// CrudMethodMetadata carries per-call query settings: lock mode, entity
// graph and query hints. It travels on the context.
type CrudMethodMetadata struct {
	LockMode    LockMode
	EntityGraph *EntityGraph
	QueryHints  map[string]any
}

func (m *CrudMethodMetadata) clone() *CrudMethodMetadata {
	if m == nil {
		return &CrudMethodMetadata{}
	}
	out := &CrudMethodMetadata{LockMode: m.LockMode, QueryHints: maps.Clone(m.QueryHints)}
	if m.EntityGraph != nil {
		out.EntityGraph = &EntityGraph{Name: m.EntityGraph.Name, Paths: slices.Clone(m.EntityGraph.Paths)}
	}
	return out
}

type metadataKey struct{}

// MetadataLookup returns the metadata for the current call, or nil.
type MetadataLookup func(ctx context.Context) *CrudMethodMetadata

// WithCrudMethodMetadata attaches metadata to ctx.
func WithCrudMethodMetadata(ctx context.Context, md *CrudMethodMetadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, md)
}

// CrudMethodMetadataFrom returns the metadata attached to ctx, or nil.
func CrudMethodMetadataFrom(ctx context.Context) *CrudMethodMetadata {
	if ctx == nil {
		return nil
	}
	md, _ := ctx.Value(metadataKey{}).(*CrudMethodMetadata)
	return md
}

// WithLockMode returns a context whose metadata takes the given lock.
func WithLockMode(ctx context.Context, mode LockMode) context.Context {
	md := CrudMethodMetadataFrom(ctx).clone()
	md.LockMode = mode
	return WithCrudMethodMetadata(ctx, md)
}

// WithEntityGraph returns a context whose metadata joins the given relation
// paths.
func WithEntityGraph(ctx context.Context, paths ...string) context.Context {
	md := CrudMethodMetadataFrom(ctx).clone()
	md.EntityGraph = &EntityGraph{Paths: slices.Clone(paths)}
	return WithCrudMethodMetadata(ctx, md)
}

// WithQueryHint returns a context whose metadata carries an extra hint.
func WithQueryHint(ctx context.Context, name string, value any) context.Context {
	md := CrudMethodMetadataFrom(ctx).clone()
	if md.QueryHints == nil {
		md.QueryHints = make(map[string]any)
	}
	md.QueryHints[name] = value
	return WithCrudMethodMetadata(ctx, md)
}

// QueryHint is a single named hint.
type QueryHint struct {
	Name  string
	Value any
}

// QueryHints is an ordered list of hints.
type QueryHints []QueryHint

// queryHintsOf collects the hints of md. Entity graph paths are resolved
// against path and become fetch graph hints when withFetchGraphs is set.
func queryHintsOf(path *dsl.EntityPath, md *CrudMethodMetadata, withFetchGraphs bool) (QueryHints, error) {
	if md == nil {
		return nil, nil
	}
	var hints QueryHints
	for _, name := range slices.Sorted(maps.Keys(md.QueryHints)) {
		hints = append(hints, QueryHint{Name: name, Value: md.QueryHints[name]})
	}
	if withFetchGraphs && md.EntityGraph != nil {
		for _, p := range md.EntityGraph.Paths {
			rel, err := path.Relation(p)
			if err != nil {
				return nil, fmt.Errorf("entity graph %q: %w", md.EntityGraph.Name, err)
			}
			hints = append(hints, QueryHint{Name: HintFetchGraph, Value: rel})
		}
	}
	return hints, nil
}

func hintNames(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		return names, true
	case []string:
		return v, true
	default:
		return nil, false
	}
}
