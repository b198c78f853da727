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
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tomoncle/hummerx/database"
	"github.com/tomoncle/hummerx/dsl"
	"github.com/uptrace/bun"
)

var executorInterface = reflect.TypeFor[PredicateProjectionExecutor]()

// RepositoryMetadata describes a repository being built: the interface the
// caller asked for and the entity it manages.
type RepositoryMetadata struct {
	RepositoryInterface reflect.Type
	DomainType          reflect.Type
}

// MetadataFor returns the metadata of repository interface R managing T.
func MetadataFor[R, T any]() RepositoryMetadata {
	return RepositoryMetadata{
		RepositoryInterface: reflect.TypeFor[R](),
		DomainType:          reflect.TypeFor[T](),
	}
}

// Declares reports whether the repository interface embeds iface.
func (m RepositoryMetadata) Declares(iface reflect.Type) bool {
	if m.RepositoryInterface == nil || iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	return m.RepositoryInterface.Kind() == reflect.Interface && m.RepositoryInterface.Implements(iface)
}

// RepositoryFragment is one implementation spliced into a repository.
type RepositoryFragment struct {
	Interface      reflect.Type
	Implementation any
}

// ImplementedFragment returns a fragment implementing iface with impl.
func ImplementedFragment(iface reflect.Type, impl any) (RepositoryFragment, error) {
	if impl == nil {
		return RepositoryFragment{}, invalidUsage("fragment implementation must not be nil")
	}
	if iface != nil && !reflect.TypeOf(impl).Implements(iface) {
		return RepositoryFragment{}, invalidUsage("%T does not implement %s", impl, iface)
	}
	return RepositoryFragment{Interface: iface, Implementation: impl}, nil
}

// RepositoryFragments is an ordered fragment list. Earlier fragments take
// precedence when several implement the same interface.
type RepositoryFragments []RepositoryFragment

// Append returns the fragments followed by more.
func (f RepositoryFragments) Append(more ...RepositoryFragment) RepositoryFragments {
	out := make(RepositoryFragments, 0, len(f)+len(more))
	return append(append(out, f...), more...)
}

func (f RepositoryFragments) find(iface reflect.Type) (any, bool) {
	for _, frag := range f {
		if frag.Implementation != nil && reflect.TypeOf(frag.Implementation).Implements(iface) {
			return frag.Implementation, true
		}
	}
	return nil, false
}

// FragmentContributor adds fragments for a repository before the factory
// appends its own. Only PredicateProjectionExecutor implementations can be
// spliced into a repository; any other fragment is rejected.
type FragmentContributor func(md RepositoryMetadata, path *dsl.EntityPath) (RepositoryFragments, error)

// RepositoryFactory builds repositories and attaches a QueryExecutor to the
// ones whose interface embeds PredicateProjectionExecutor.
type RepositoryFactory struct {
	db           *bun.DB
	resolver     dsl.EntityPathResolver
	logger       database.Logger
	metadata     MetadataLookup
	contributors []FragmentContributor
}

type FactoryOption func(*RepositoryFactory)

func WithEntityPathResolver(resolver dsl.EntityPathResolver) FactoryOption {
	return func(f *RepositoryFactory) {
		if resolver != nil {
			f.resolver = resolver
		}
	}
}

func WithLogger(logger database.Logger) FactoryOption {
	return func(f *RepositoryFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMethodMetadata sets how executors look up the CRUD method metadata
// of a call.
func WithMethodMetadata(lookup MetadataLookup) FactoryOption {
	return func(f *RepositoryFactory) {
		if lookup != nil {
			f.metadata = lookup
		}
	}
}

func WithFragmentContributor(c FragmentContributor) FactoryOption {
	return func(f *RepositoryFactory) {
		if c != nil {
			f.contributors = append(f.contributors, c)
		}
	}
}

func NewRepositoryFactory(db *bun.DB, opts ...FactoryOption) *RepositoryFactory {
	f := &RepositoryFactory{
		db:       db,
		resolver: dsl.DefaultResolver,
		logger:   database.GetLogger(),
		metadata: CrudMethodMetadataFrom,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DB returns the database repositories are built on.
func (f *RepositoryFactory) DB() *bun.DB { return f.db }

// GetEntityInformation resolves the entity path of a domain type.
func (f *RepositoryFactory) GetEntityInformation(domain reflect.Type) (*dsl.EntityPath, error) {
	p, err := f.resolver.CreatePath(f.db, domain)
	if err != nil {
		if errors.Is(err, dsl.ErrInvalidEntity) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDataAccessAPIUsage, err)
		}
		return nil, err
	}
	return p, nil
}

// GetRepositoryFragments returns the contributed fragments and, when the
// repository interface declares PredicateProjectionExecutor, a QueryExecutor
// fragment for the domain type.
func (f *RepositoryFactory) GetRepositoryFragments(md RepositoryMetadata) (RepositoryFragments, error) {
	if md.RepositoryInterface == nil || md.RepositoryInterface.Kind() != reflect.Interface {
		return nil, invalidUsage("repository type %v is not an interface", md.RepositoryInterface)
	}
	path, err := f.GetEntityInformation(md.DomainType)
	if err != nil {
		return nil, err
	}

	var fragments RepositoryFragments
	for _, contribute := range f.contributors {
		more, err := contribute(md, path)
		if err != nil {
			return nil, fmt.Errorf("contribute fragments for %s: %w", md.RepositoryInterface, err)
		}
		for _, frag := range more {
			if frag.Implementation == nil || !reflect.TypeOf(frag.Implementation).Implements(executorInterface) {
				return nil, invalidUsage("fragment %T for %s cannot be composed: only %s fragments are supported",
					frag.Implementation, md.RepositoryInterface, executorInterface)
			}
		}
		fragments = fragments.Append(more...)
	}

	if md.Declares(executorInterface) {
		exec := NewQueryExecutor(f.db, path, WithMetadataLookup(f.metadata), WithExecutorLogger(f.logger))
		frag, err := ImplementedFragment(executorInterface, exec)
		if err != nil {
			return nil, err
		}
		fragments = fragments.Append(frag)
		f.logger.Debug("Attached predicate projection executor", "repository", md.RepositoryInterface.String(), "entity", path.TableName())
	}
	return fragments, nil
}

type composedRepository[T any] struct {
	Repository[T]
	PredicateProjectionExecutor
}

// GetRepository builds the repository interface R for entity T. The base
// repository serves the CRUD methods and the fragments serve the rest; R
// must not declare methods that neither provides.
func GetRepository[R, T any](f *RepositoryFactory) (R, error) {
	var zero R
	md := MetadataFor[R, T]()
	fragments, err := f.GetRepositoryFragments(md)
	if err != nil {
		return zero, err
	}

	base := newRepository[T](f.db, f.resolver)
	var impl any = base
	if md.Declares(executorInterface) {
		if exec, ok := fragments.find(executorInterface); ok {
			impl = &composedRepository[T]{Repository: base, PredicateProjectionExecutor: exec.(PredicateProjectionExecutor)}
		}
	}

	if missing := missingMethods(md.RepositoryInterface, impl); len(missing) > 0 {
		return zero, invalidUsage("no fragment implements %s.%s", md.RepositoryInterface, strings.Join(missing, ", "))
	}
	repo, ok := impl.(R)
	if !ok {
		return zero, invalidUsage("cannot compose %s", md.RepositoryInterface)
	}
	return repo, nil
}

// MustGetRepository is like GetRepository but panics on error.
func MustGetRepository[R, T any](f *RepositoryFactory) R {
	repo, err := GetRepository[R, T](f)
	if err != nil {
		panic(err)
	}
	return repo
}

// missingMethods lists the methods of iface that impl lacks or declares with
// a different signature.
func missingMethods(iface reflect.Type, impl any) []string {
	typ := reflect.TypeOf(impl)
	var missing []string
	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		got, ok := typ.MethodByName(m.Name)
		if !ok || !sameSignature(got.Type, m.Type) {
			missing = append(missing, m.Name)
		}
	}
	sort.Strings(missing)
	return missing
}

// sameSignature compares a method value type, receiver first, with an
// interface method type.
func sameSignature(method, want reflect.Type) bool {
	if method.NumIn()-1 != want.NumIn() || method.NumOut() != want.NumOut() || method.IsVariadic() != want.IsVariadic() {
		return false
	}
	for i := 0; i < want.NumIn(); i++ {
		if method.In(i+1) != want.In(i) {
			return false
		}
	}
	for i := 0; i < want.NumOut(); i++ {
		if method.Out(i) != want.Out(i) {
			return false
		}
	}
	return true
}
