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

import "errors"

var (
	// ErrUnknownProperty is returned when a property does not resolve to a
	// column of the entity.
	ErrUnknownProperty = errors.New("dsl: unknown property")

	// ErrUnsupportedRelation is returned for paths that traverse to-many
	// relations, which cannot be joined into a single row.
	ErrUnsupportedRelation = errors.New("dsl: relation cannot be joined")

	// ErrInvalidEntity is returned when a type is not usable as a Bun model.
	ErrInvalidEntity = errors.New("dsl: invalid entity type")

	// ErrInvalidProjection is returned for malformed projections or
	// destinations that do not match the projection type.
	ErrInvalidProjection = errors.New("dsl: invalid projection")

	// ErrNonUniqueResult is returned by FetchOne when more than one row
	// matches.
	ErrNonUniqueResult = errors.New("dsl: query returned more than one result")
)
