// Copyright 2026 Debtpipe Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package etl

// Error kinds for the three pipeline stages. Each stage failure is logged
// and recorded in the run's Result rather than crashing the run; the caller
// inspects the kind with errors.As and decides whether it is fatal.

// FetchError indicates that downloading the series from the API failed.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// TransformError indicates that the raw rows could not be normalized.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string { return "transform: " + e.Err.Error() }
func (e *TransformError) Unwrap() error { return e.Err }

// LoadError indicates a database connection, schema setup or upsert
// failure.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "load: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }
