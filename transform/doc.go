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

// Package transform turns a raw catalog entity and its aggregated summary
// into a retrieval document.
//
// The document text is a fixed sequence of templated English sentences built
// from the entity's attribute tree:
//
//	The cruise is named Volga Dreams. <description> The itinerary is described as: ...
//
// A sentence is omitted when its value resolves to nothing. Long descriptions
// are capped at a word budget, HTML is stripped and list values are
// de-duplicated in first-seen order. Localized values prefer English; other
// languages are routed through an optional Translator.
//
// Transform is pure: the same entity and summary always produce the same
// document, and no attribute tree, however malformed, makes it fail.
package transform
