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
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/uptrace/bun"
)

var defaultRegistry = NewModelRegistry()

// SQLModel is a registered Bun model. Instance returns a struct pointer;
// lower priorities have their tables created first.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry keeps models in priority order. Registration order breaks
// ties.
type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

type modelRegistry struct {
	models []SQLModel
	mutex  sync.RWMutex
}

func NewModelRegistry() ModelRegistry {
	return &modelRegistry{models: make([]SQLModel, 0)}
}

func (r *modelRegistry) Register(model SQLModel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.models = append(r.models, model)
}

func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

type modelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct pointer and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &modelAdapter{instance: instance, priority: priority}
}

func (a *modelAdapter) Instance() interface{} { return a.instance }

func (a *modelAdapter) Priority() int { return a.priority }

// RegisterModel adds instance to the default registry.
func RegisterModel(instance interface{}, priority int) {
	defaultRegistry.Register(NewModelAdapter(instance, priority))
}

// GetRegisteredModels returns the models of the default registry.
func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

func RegisteredModelInstances() []interface{} {
	models := GetRegisteredModels()
	instances := make([]interface{}, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}

// CreateTables creates the tables of the registered models in priority
// order, skipping existing ones.
func CreateTables(ctx context.Context, db bun.IDB, logger Logger) error {
	return CreateTablesFor(ctx, db, logger, RegisteredModelInstances()...)
}

// CreateTablesFor is CreateTables for an explicit model list.
func CreateTablesFor(ctx context.Context, db bun.IDB, logger Logger, models ...interface{}) error {
	if logger == nil {
		logger = GetLogger()
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %s: %w", modelName(model), err)
		}
		logger.Debug("Table ready", "model", modelName(model))
	}
	return nil
}

func modelName(model interface{}) string {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}
