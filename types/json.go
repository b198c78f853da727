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

package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JsonObject maps a JSON column holding an object. It can be used as an
// entity field or as a constructor parameter in a projection.
type JsonObject map[string]interface{}

// JsonArray maps a JSON column holding an array of objects.
type JsonArray []JsonObject

func (j JsonObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JsonObject) Scan(value interface{}) error {
	if value == nil {
		*j = make(JsonObject)
		return nil
	}
	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, j)
}

func (j JsonArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JsonArray) Scan(value interface{}) error {
	if value == nil {
		*j = make(JsonArray, 0)
		return nil
	}
	raw, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, j)
}

// SQLite and MySQL hand text columns back as string or []byte depending on
// the driver.
func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T into a JSON column", value)
	}
}
