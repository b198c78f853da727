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
)

var (
	// ErrInvalidDataAccessAPIUsage reports a misuse of the repository API,
	// such as a nil pageable or a repository interface that cannot be built.
	ErrInvalidDataAccessAPIUsage = errors.New("invalid data access API usage")

	// ErrIncorrectResultSize reports a query that returned a different
	// number of rows than the operation allows.
	ErrIncorrectResultSize = errors.New("incorrect result size")
)

// IncorrectResultSizeError carries the expected and actual result sizes.
// Actual is -1 when the query was cut off before all rows were counted.
type IncorrectResultSizeError struct {
	Expected int
	Actual   int
	Err      error
}

func (e *IncorrectResultSizeError) Error() string {
	msg := fmt.Sprintf("incorrect result size: expected %d", e.Expected)
	if e.Actual >= 0 {
		msg += fmt.Sprintf(", actual %d", e.Actual)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IncorrectResultSizeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIncorrectResultSize}
	}
	return []error{ErrIncorrectResultSize, e.Err}
}

func invalidUsage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDataAccessAPIUsage, fmt.Sprintf(format, args...))
}
