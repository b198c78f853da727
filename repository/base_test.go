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
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hummerx/dsl"
	"github.com/tomoncle/hummerx/types"
	"github.com/uptrace/bun"
)

type Edition struct {
	bun.BaseModel `bun:"table:editions,alias:e"`

	BookID int64 `bun:"book_id,pk"`
	Number int   `bun:"number,pk"`
}

func TestRepositoryReads(t *testing.T) {
	ctx := context.Background()
	db, _ := newLibraryDB(t)
	repo := NewRepository[Book](db)
	book, err := repo.EntityPath()
	require.NoError(t, err)

	dune, err := repo.GetOne(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune", dune.Title)
	require.NotNil(t, dune.Rating)

	_, err = repo.GetOne(ctx, 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	polish, err := repo.List(ctx, book.Field("author.country").Eq("PL"))
	require.NoError(t, err)
	require.Len(t, polish, 1)
	assert.Equal(t, "Solaris", polish[0].Title)

	long, err := repo.Query(ctx, "pages > ?", 400)
	require.NoError(t, err)
	assert.Len(t, long, 2)

	n, err := repo.Count(ctx, book.Field("author.name").Eq("Ursula K. Le Guin"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := repo.Exists(ctx, book.Field("title").Eq("Solaris"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, book.Field("title").Eq("Ubik"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryPage(t *testing.T) {
	ctx := context.Background()
	db, _ := newLibraryDB(t)
	repo := NewRepository[Book](db)
	book, err := repo.EntityPath()
	require.NoError(t, err)

	page, err := repo.Page(ctx, dsl.Predicate{}, types.NewPageRequest(1, 2, types.By("title")))
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "Children of Dune", page.Content[0].Title)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages())

	page, err = repo.Page(ctx, book.Field("author.country").Eq("US"), types.NewPageRequest(2, 3, types.By("id")))
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "The Dispossessed", page.Content[0].Title)
	assert.Equal(t, 4, page.Total)

	_, err = repo.Page(ctx, dsl.Predicate{}, nil)
	assert.ErrorIs(t, err, ErrInvalidDataAccessAPIUsage)
}

func TestRepositoryWrites(t *testing.T) {
	ctx := context.Background()
	db, _ := newLibraryDB(t)
	repo := NewRepository[Book](db)

	require.NoError(t, repo.Create(ctx))
	require.NoError(t, repo.Create(ctx, &Book{ID: 6, Title: "Ubik", Pages: 202, AuthorID: 3}))

	ubik, err := repo.GetOne(ctx, 6)
	require.NoError(t, err)
	ubik.Pages = 224
	require.NoError(t, repo.Update(ctx, ubik))

	ubik, err = repo.GetOne(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, 224, ubik.Pages)

	require.NoError(t, repo.Delete(ctx, 6))
	_, err = repo.GetOne(ctx, 6)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	db, _ := newLibraryDB(t)
	repo := NewRepository[Book](db)

	err := repo.Upsert(ctx, []string{"title"}, nil,
		&Book{ID: 1, Title: "Dune (1965)", Pages: 1, AuthorID: 1},
		&Book{ID: 7, Title: "His Master's Voice", Pages: 199, AuthorID: 3})
	require.NoError(t, err)

	dune, err := repo.GetOne(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune (1965)", dune.Title)
	assert.Equal(t, 412, dune.Pages)

	voice, err := repo.GetOne(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "His Master's Voice", voice.Title)

	assert.Error(t, repo.Upsert(ctx, nil, nil, dune))
	assert.NoError(t, repo.Upsert(ctx, []string{"title"}, nil))
}

func TestRepositoryWritesWithTx(t *testing.T) {
	ctx := context.Background()
	db, _ := newLibraryDB(t)
	repo := NewRepository[Book](db)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateWithTx(ctx, &tx, &Book{ID: 6, Title: "Ubik", Pages: 202, AuthorID: 3}))
	require.NoError(t, repo.UpdateWithTx(ctx, &tx, &Book{ID: 6, Title: "Ubik", Pages: 224, AuthorID: 3}))
	require.NoError(t, repo.UpsertWithTx(ctx, &tx, []string{"pages"}, []string{"id"}, &Book{ID: 4, Title: "Solaris", Pages: 210, AuthorID: 3}))
	require.NoError(t, repo.DeleteWithTx(ctx, &tx, 5))
	require.NoError(t, tx.Commit())

	ubik, err := repo.GetOne(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, 224, ubik.Pages)

	solaris, err := repo.GetOne(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 210, solaris.Pages)

	_, err = repo.GetOne(ctx, 5)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRepositoryRequiresSinglePrimaryKey(t *testing.T) {
	ctx := context.Background()
	db, _ := newLibraryDB(t)

	_, err := NewRepository[Edition](db).GetOne(ctx, 1)
	assert.ErrorIs(t, err, ErrInvalidDataAccessAPIUsage)

	_, err = NewRepository[int](db).EntityPath()
	assert.ErrorIs(t, err, dsl.ErrInvalidEntity)
}
