// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import "errors"

var (
	// ErrConnectivity indicates the upstream system could not be reached or
	// answered with a failure.
	ErrConnectivity = errors.New("source unavailable")

	// ErrMalformedRecord indicates a record that cannot be decoded.
	ErrMalformedRecord = errors.New("malformed record")
)
