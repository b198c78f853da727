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

package dsl

import (
	"fmt"
	"reflect"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// EntityPath identifies a Bun model and resolves its properties to column
// paths. It is safe for concurrent use.
type EntityPath struct {
	db    *bun.DB
	typ   reflect.Type
	table *schema.Table
	model any
	props *gocache.Cache
}

func newEntityPath(db *bun.DB, typ reflect.Type) (*EntityPath, error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidEntity)
	}
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidEntity, typ)
	}
	table := db.Table(typ)
	if table == nil {
		return nil, fmt.Errorf("%w: no table metadata for %s", ErrInvalidEntity, typ)
	}
	return &EntityPath{
		db:    db,
		typ:   typ,
		table: table,
		model: reflect.Zero(reflect.PointerTo(typ)).Interface(),
		props: gocache.New(gocache.NoExpiration, 0),
	}, nil
}

// Type returns the entity struct type.
func (e *EntityPath) Type() reflect.Type { return e.typ }

// Table returns Bun's table metadata for the entity.
func (e *EntityPath) Table() *schema.Table { return e.table }

// Model returns a typed nil pointer suitable for bun.SelectQuery.Model.
func (e *EntityPath) Model() any { return e.model }

// Alias returns the table alias used in generated queries.
func (e *EntityPath) Alias() string { return e.table.Alias }

// TableName returns the table name.
func (e *EntityPath) TableName() string { return e.table.Name }

// Get resolves a property to a path. A property is a Go field name or a
// column name, optionally prefixed by to-one relations: "Author.Name",
// "author.name".
func (e *EntityPath) Get(property string) (Path, error) {
	if cached, ok := e.props.Get(property); ok {
		return cached.(Path), nil
	}
	p, err := e.resolve(property)
	if err != nil {
		return Path{}, err
	}
	e.props.SetDefault(property, p)
	return p, nil
}

// Field is like Get but panics when the property cannot be resolved. It is
// meant for package-level path declarations.
func (e *EntityPath) Field(property string) Path {
	p, err := e.Get(property)
	if err != nil {
		panic(err)
	}
	return p
}

func (e *EntityPath) resolve(property string) (Path, error) {
	segments := strings.Split(strings.TrimSpace(property), ".")
	table := e.table
	alias := e.table.Alias
	var relations, aliases []string

	for i, seg := range segments {
		if seg == "" {
			return Path{}, fmt.Errorf("%w: %q on %s", ErrUnknownProperty, property, e.typ)
		}
		if i == len(segments)-1 {
			field := lookupField(table, seg)
			if field == nil {
				return Path{}, fmt.Errorf("%w: %q on %s", ErrUnknownProperty, property, e.typ)
			}
			p := Path{property: property, alias: alias, column: field.Name}
			if len(relations) > 0 {
				p.relation = strings.Join(relations, ".")
				p.alias = strings.Join(aliases, "__")
			}
			return p, nil
		}

		rel := lookupRelation(table, seg)
		if rel == nil {
			return Path{}, fmt.Errorf("%w: %q on %s", ErrUnknownProperty, property, e.typ)
		}
		if rel.Type != schema.HasOneRelation && rel.Type != schema.BelongsToRelation {
			return Path{}, fmt.Errorf("%w: %s.%s", ErrUnsupportedRelation, table.TypeName, rel.Field.GoName)
		}
		relations = append(relations, rel.Field.GoName)
		aliases = append(aliases, rel.Field.Name)
		// JoinTable can be a half-built placeholder; ask the registry.
		table = e.db.Table(rel.JoinTable.Type)
	}
	return Path{}, fmt.Errorf("%w: %q on %s", ErrUnknownProperty, property, e.typ)
}

// Relation resolves a dotted path of to-one relations ("author.profile") to
// the Bun relation name used for joins ("Author.Profile").
func (e *EntityPath) Relation(path string) (string, error) {
	table := e.table
	var names []string
	for _, seg := range strings.Split(strings.TrimSpace(path), ".") {
		rel := lookupRelation(table, seg)
		if seg == "" || rel == nil {
			return "", fmt.Errorf("%w: relation %q on %s", ErrUnknownProperty, path, e.typ)
		}
		if rel.Type != schema.HasOneRelation && rel.Type != schema.BelongsToRelation {
			return "", fmt.Errorf("%w: %s.%s", ErrUnsupportedRelation, table.TypeName, rel.Field.GoName)
		}
		names = append(names, rel.Field.GoName)
		table = e.db.Table(rel.JoinTable.Type)
	}
	return strings.Join(names, "."), nil
}

func lookupField(table *schema.Table, name string) *schema.Field {
	if f, ok := table.FieldMap[name]; ok {
		return f
	}
	for _, f := range table.Fields {
		if f.GoName == name {
			return f
		}
	}
	for _, f := range table.Fields {
		if strings.EqualFold(f.GoName, name) || strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

func lookupRelation(table *schema.Table, name string) *schema.Relation {
	if rel, ok := table.Relations[name]; ok {
		return rel
	}
	for _, rel := range table.Relations {
		if strings.EqualFold(rel.Field.GoName, name) || strings.EqualFold(rel.Field.Name, name) {
			return rel
		}
	}
	return nil
}

// EntityPathResolver creates entity paths for model types.
type EntityPathResolver interface {
	CreatePath(db *bun.DB, typ reflect.Type) (*EntityPath, error)
}

// SimpleEntityPathResolver builds paths straight from Bun's table metadata
// and keeps one path per database and type.
type SimpleEntityPathResolver struct {
	paths *gocache.Cache
}

var _ EntityPathResolver = (*SimpleEntityPathResolver)(nil)

// DefaultResolver is the resolver used when none is configured.
var DefaultResolver = NewSimpleEntityPathResolver()

func NewSimpleEntityPathResolver() *SimpleEntityPathResolver {
	return &SimpleEntityPathResolver{paths: gocache.New(gocache.NoExpiration, 0)}
}

func (r *SimpleEntityPathResolver) CreatePath(db *bun.DB, typ reflect.Type) (*EntityPath, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database", ErrInvalidEntity)
	}
	if typ == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidEntity)
	}
	key := fmt.Sprintf("%p/%s", db, typeKey(typ))
	if cached, ok := r.paths.Get(key); ok {
		return cached.(*EntityPath), nil
	}
	p, err := newEntityPath(db, typ)
	if err != nil {
		return nil, err
	}
	r.paths.SetDefault(key, p)
	return p, nil
}

func typeKey(typ reflect.Type) string {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.PkgPath() == "" {
		return typ.String()
	}
	return typ.PkgPath() + "." + typ.Name()
}

// PathOf resolves the entity path of T with the default resolver.
func PathOf[T any](db *bun.DB) (*EntityPath, error) {
	return DefaultResolver.CreatePath(db, reflect.TypeFor[T]())
}

// MustPathOf is like PathOf but panics on error.
func MustPathOf[T any](db *bun.DB) *EntityPath {
	p, err := PathOf[T](db)
	if err != nil {
		panic(err)
	}
	return p
}
