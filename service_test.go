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

package hummerx

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hummerx/database"
	"github.com/tomoncle/hummerx/dsl"
	"github.com/tomoncle/hummerx/repository"
	"github.com/tomoncle/hummerx/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID      int64  `bun:"id,pk"`
	Name    string `bun:"name,notnull"`
	Country string `bun:"country"`
}

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID       int64   `bun:"id,pk"`
	Title    string  `bun:"title,notnull"`
	Pages    int     `bun:"pages"`
	AuthorID int64   `bun:"author_id"`
	Author   *Author `bun:"rel:belongs-to,join:author_id=id"`
}

type Shelf struct {
	Title  string
	Author string
}

func newLibrary(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, database.CreateTablesFor(ctx, db, database.GetLogger(), (*Author)(nil), (*Book)(nil)))

	authors := []*Author{
		{ID: 1, Name: "Frank Herbert", Country: "US"},
		{ID: 2, Name: "Ursula K. Le Guin", Country: "US"},
		{ID: 3, Name: "Stanislaw Lem", Country: "PL"},
	}
	books := []*Book{
		{ID: 1, Title: "Dune", Pages: 412, AuthorID: 1},
		{ID: 2, Title: "The Left Hand of Darkness", Pages: 304, AuthorID: 2},
		{ID: 3, Title: "Solaris", Pages: 204, AuthorID: 3},
	}
	for _, rows := range []any{&authors, &books} {
		_, err := db.NewInsert().Model(rows).Exec(ctx)
		require.NoError(t, err)
	}
}

func newBookService(t *testing.T) (Service[Book], *bun.DB) {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	newLibrary(t, db)
	return NewServiceWithDB[Book](db), db
}

func TestServiceReads(t *testing.T) {
	ctx := context.Background()
	svc, _ := newBookService(t)
	book, err := svc.Path()
	require.NoError(t, err)
	assert.Equal(t, "books", book.TableName())

	dune, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune", dune.Title)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	us, err := svc.List(ctx, book.Field("author.country").Eq("US"))
	require.NoError(t, err)
	assert.Len(t, us, 2)

	short, err := svc.Query(ctx, "pages < ?", 300)
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, "Solaris", short[0].Title)

	n, err := svc.Count(ctx, book.Field("pages").Gt(300))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := svc.Exists(ctx, book.Field("title").LikeIgnoreCase("%darkness%"))
	require.NoError(t, err)
	assert.True(t, ok)

	page, err := svc.Page(ctx, dsl.Predicate{}, types.NewPageRequest(2, 2, types.By("id")))
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Solaris", page.Content[0].Title)
	assert.Equal(t, 3, page.Total)
}

func TestServiceWrites(t *testing.T) {
	ctx := context.Background()
	svc, db := newBookService(t)

	require.NoError(t, svc.Save(ctx, &Book{ID: 4, Title: "Ubik", Pages: 202, AuthorID: 3}))
	require.NoError(t, svc.Update(ctx, &Book{ID: 4, Title: "Ubik", Pages: 224, AuthorID: 3}))
	ubik, err := svc.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 224, ubik.Pages)

	require.NoError(t, svc.SaveOrUpdate(ctx, []string{"title"}, nil, &Book{ID: 1, Title: "Dune (1965)", Pages: 1, AuthorID: 1}))
	dune, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune (1965)", dune.Title)
	assert.Equal(t, 412, dune.Pages)

	require.NoError(t, svc.Delete(ctx, 4))
	_, err = svc.Get(ctx, 4)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, svc.SaveWithTx(ctx, &tx, &Book{ID: 5, Title: "Fiasco", Pages: 322, AuthorID: 3}))
	require.NoError(t, svc.UpdateWithTx(ctx, &tx, &Book{ID: 5, Title: "Fiasco", Pages: 330, AuthorID: 3}))
	require.NoError(t, svc.SaveOrUpdateWithTx(ctx, &tx, []string{"pages"}, []string{"id"}, &Book{ID: 3, Title: "Solaris", Pages: 210, AuthorID: 3}))
	require.NoError(t, svc.DeleteWithTx(ctx, &tx, 2))
	require.NoError(t, tx.Commit())

	fiasco, err := svc.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 330, fiasco.Pages)
	solaris, err := svc.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 210, solaris.Pages)
	_, err = svc.Get(ctx, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestServiceProjections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newBookService(t)
	book, err := svc.Path()
	require.NoError(t, err)
	exec, err := svc.Projections()
	require.NoError(t, err)

	shelf := dsl.Fields[Shelf](book.Field("title"), book.Field("author.name").As("author"))
	got, err := repository.FetchAllOrdered(ctx, exec, book.Field("author.country").Eq("US"), shelf, book.Field("title").Asc())
	require.NoError(t, err)
	assert.Equal(t, []Shelf{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin"},
	}, got)

	one, err := repository.FetchOne(ctx, exec, book.Field("title").Eq("Solaris"), shelf)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "Stanislaw Lem", one.Author)

	page, err := repository.FetchPage(ctx, exec, dsl.Predicate{}, types.NewPageRequest(1, 2, types.By("title")), shelf)
	require.NoError(t, err)
	assert.Len(t, page.Content, 2)
	assert.Equal(t, 3, page.Total)
}

func TestServiceBuilders(t *testing.T) {
	ctx := context.Background()
	svc, _ := newBookService(t)

	var titles []string
	err := svc.SelectBuilder().Model((*Book)(nil)).Column("title").Where("pages > ?", 300).Order("title").Scan(ctx, &titles)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "The Left Hand of Darkness"}, titles)

	_, err = svc.InsertBuilder().Model(&Book{ID: 9, Title: "Eden", Pages: 260, AuthorID: 3}).Exec(ctx)
	require.NoError(t, err)
	_, err = svc.UpdateBuilder().Model((*Book)(nil)).Set("pages = ?", 262).Where("id = ?", 9).Exec(ctx)
	require.NoError(t, err)
	eden, err := svc.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 262, eden.Pages)

	_, err = svc.DeleteBuilder().Model((*Book)(nil)).Where("id = ?", 9).Exec(ctx)
	require.NoError(t, err)
	n, err := svc.Count(ctx, dsl.Predicate{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestServiceInvalidEntity(t *testing.T) {
	_, db := newBookService(t)
	ints := NewServiceWithDB[int](db)

	_, err := ints.All(context.Background())
	assert.ErrorIs(t, err, repository.ErrInvalidDataAccessAPIUsage)
	_, err = ints.Projections()
	assert.ErrorIs(t, err, dsl.ErrInvalidEntity)
}

func initLibrary(t *testing.T, name string) *bun.DB {
	t.Helper()
	cfg := database.DefaultConfig()
	cfg.Connection.Type = "sqlite"
	cfg.Connection.DBName = t.TempDir() + "/" + name + ".db"
	cfg.Connection.HealthCheckInterval = 0
	cfg.Connection.SlowQueryTime = 0
	factory := database.NewDatabaseFactory()
	factory.SetRegisterer(prometheus.NewRegistry())
	db, err := database.InitDBWithFactory(factory, cfg)
	require.NoError(t, err)
	newLibrary(t, db)
	return db
}

func TestServiceGlobalDatabase(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, database.CloseDB())
	t.Cleanup(func() { _ = database.CloseDB() })

	svc := NewService[Book]()
	_, err := svc.All(ctx)
	assert.ErrorIs(t, err, ErrDatabaseNotInitialized)
	assert.PanicsWithError(t, ErrDatabaseNotInitialized.Error(), func() { svc.SelectBuilder() })
	assert.PanicsWithError(t, ErrDatabaseNotInitialized.Error(), func() { svc.DeleteBuilder() })

	initLibrary(t, "first")
	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, database.CloseDB())
	second := initLibrary(t, "second")
	_, err = second.NewInsert().Model(&Book{ID: 4, Title: "Ubik", Pages: 202, AuthorID: 3}).Exec(ctx)
	require.NoError(t, err)

	all, err = svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	n, err := svc.SelectBuilder().Model((*Book)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
