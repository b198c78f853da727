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
	"reflect"
	"strings"
	"sync"

	"github.com/tomoncle/hummerx/dsl"
	"github.com/tomoncle/hummerx/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db       *bun.DB
	resolver dsl.EntityPathResolver

	once sync.Once
	path *dsl.EntityPath
	err  error
}

// NewRepository returns a generic repository backed by the provided Bun DB.
func NewRepository[T any](db *bun.DB) Repository[T] {
	return newRepository[T](db, dsl.DefaultResolver)
}

func newRepository[T any](db *bun.DB, resolver dsl.EntityPathResolver) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{db: db, resolver: resolver}
}

func (r *baseRepositoryImpl[T]) EntityPath() (*dsl.EntityPath, error) {
	r.once.Do(func() {
		r.path, r.err = r.resolver.CreatePath(r.db, reflect.TypeFor[T]())
	})
	return r.path, r.err
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

// primaryKey returns the single primary key column of T.
func (r *baseRepositoryImpl[T]) primaryKey() (*dsl.EntityPath, string, error) {
	path, err := r.EntityPath()
	if err != nil {
		return nil, "", err
	}
	pks := path.Table().PKs
	if len(pks) != 1 {
		return nil, "", invalidUsage("%s has %d primary key columns, want 1", path.TableName(), len(pks))
	}
	return path, pks[0].Name, nil
}

func (r *baseRepositoryImpl[T]) query(conn bun.IDB, preds ...dsl.Predicate) (*dsl.Query, error) {
	path, err := r.EntityPath()
	if err != nil {
		return nil, err
	}
	return dsl.From(conn, path).Filter(preds...), nil
}

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	path, pk, err := r.primaryKey()
	if err != nil {
		return nil, err
	}
	var entity T
	q := dsl.From(r.db, path).Filter(dsl.Column(path.Alias(), pk).Eq(id))
	if err := q.Unwrap().Scan(ctx, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.List(ctx, dsl.Predicate{})
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, pred dsl.Predicate) ([]*T, error) {
	q, err := r.query(r.db, pred)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	if err := q.Unwrap().Scan(ctx, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, pred dsl.Predicate) (int, error) {
	q, err := r.query(r.db, pred)
	if err != nil {
		return 0, err
	}
	return q.Unwrap().Count(ctx)
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, pred dsl.Predicate) (bool, error) {
	q, err := r.query(r.db, pred)
	if err != nil {
		return false, err
	}
	return q.Unwrap().Exists(ctx)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pred dsl.Predicate, pageable types.Pageable) (*types.Page[*T], error) {
	if pageable == nil {
		return nil, invalidUsage("pageable must not be nil")
	}
	path, err := r.EntityPath()
	if err != nil {
		return nil, err
	}
	q := dsl.From(r.db, path).Filter(pred)
	if err := applyPagination(path, q, pageable); err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	if err := q.Unwrap().Scan(ctx, &entities); err != nil {
		return nil, err
	}
	return types.GetPage(entities, pageable, func() (int, error) {
		return dsl.From(r.db, path).Filter(pred).Unwrap().Count(ctx)
	})
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	return r.insert(ctx, r.db, entity)
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, r.db, fields, duplicateKeys, entity)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	_, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	return r.delete(ctx, r.db, id)
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error {
	return r.insert(ctx, tx, entity)
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, tx, fields, duplicateKeys, entity)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	_, err := tx.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return r.delete(ctx, tx, id)
}

func (r *baseRepositoryImpl[T]) insert(ctx context.Context, conn bun.IDB, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	_, err := conn.NewInsert().Model(&entities).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) delete(ctx context.Context, conn bun.IDB, id any) error {
	_, pk, err := r.primaryKey()
	if err != nil {
		return err
	}
	var entity T
	_, err = conn.NewDelete().Model(&entity).Where("? = ?", bun.Ident(pk), id).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) multipleUpsert(ctx context.Context, conn bun.IDB, fields []string, duplicateKeys []string, entities []*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entities) == 0 {
		return nil
	}

	insertQuery := conn.NewInsert()
	if r.db.HasFeature(feature.InsertOnConflict) {
		return r.upsertOnConflict(ctx, insertQuery, fields, duplicateKeys, entities)
	} else if r.db.HasFeature(feature.InsertOnDuplicateKey) {
		return r.upsertOnDuplicateKey(ctx, insertQuery, fields, entities)
	}
	// Fallback: Separate insert/update logic
	return r.upsertFallback(ctx, conn, entities)
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	set := make([]string, 0, len(fields))
	args := make([]any, 0, 2*len(fields))
	for _, field := range fields {
		set = append(set, "? = VALUES(?)")
		args = append(args, bun.Ident(field), bun.Ident(field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE "+strings.Join(set, ", "), args...).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		_, pk, err := r.primaryKey()
		if err != nil {
			return err
		}
		duplicateKeys = []string{pk}
	}
	keys := make([]bun.Ident, len(duplicateKeys))
	for i, k := range duplicateKeys {
		keys[i] = bun.Ident(k)
	}
	q := insertQuery.
		Model(&entities).
		On("CONFLICT (?) DO UPDATE", bun.In(keys))
	for _, field := range fields {
		q = q.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, conn bun.IDB, entities []*T) error {
	for _, entity := range entities {
		_, err := conn.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			_, updateErr := conn.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
			}
		}
	}
	return nil
}
