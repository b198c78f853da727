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

package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoIndexErr:                  "no_index",
	NoColumnErr:                 "no_column",
	ExistIndexErr:               "exist_index",
	ExistColumnErr:              "exist_column",
	NoTableErr:                  "no_table",
	ExistTableErr:               "exist_table",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_constraint_violation",
	DataTruncatedErr:            "data_truncated",
	InvalidTypeCastErr:          "invalid_type_cast",
}

func (e SQLError) String() string { return sqlErrorNames[e] }

var mysqlErrors = map[uint16]SQLError{
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
}

// SQLSTATE codes shared by PostgreSQL and the messages of other drivers.
var sqlStates = map[string]SQLError{
	"42703": NoColumnErr,
	"42704": NoIndexErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"42701": ExistColumnErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
}

// Message fragments reported by SQLite and by drivers without typed errors,
// checked in order.
var sqlMessages = []struct {
	kind  SQLError
	parts []string
}{
	{NoColumnErr, []string{"no such column"}},
	{NoColumnErr, []string{"undefined column"}},
	{NoIndexErr, []string{"no such index"}},
	{NoIndexErr, []string{"index", "does not exist"}},
	{NoTableErr, []string{"no such table"}},
	{NoTableErr, []string{"undefined table"}},
	{ExistIndexErr, []string{"index", "already exists"}},
	{ExistTableErr, []string{"table", "already exists"}},
	{ExistTableErr, []string{"relation", "already exists"}},
	{DuplicateKeyErr, []string{"unique constraint failed"}},
	{DuplicateKeyErr, []string{"duplicate key value"}},
	{NotNullViolationErr, []string{"not null constraint failed"}},
	{NotNullViolationErr, []string{"not-null constraint"}},
	{ForeignKeyViolationErr, []string{"foreign key constraint failed"}},
	{ForeignKeyViolationErr, []string{"foreign key violation"}},
	{CheckConstraintViolationErr, []string{"check constraint"}},
	{DataTruncatedErr, []string{"data truncated"}},
	{DataTruncatedErr, []string{"string data right truncation"}},
	{InvalidTypeCastErr, []string{"datatype mismatch"}},
}

// IsSqlError classifies err. is reports whether err came from the database;
// sqlErr is UnknownErr when the kind is not recognized.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true, mysqlErrors[mysqlErr.Number]
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, sqlStates[string(pqErr.Code)]
	}

	s := strings.ToLower(err.Error())
	for code, kind := range sqlStates {
		if strings.Contains(s, "sqlstate "+strings.ToLower(code)) {
			return true, kind
		}
	}
	for _, m := range sqlMessages {
		if containsAll(s, m.parts) {
			return true, m.kind
		}
	}
	return false, UnknownErr
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
