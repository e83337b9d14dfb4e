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

// Package sqlsource reads catalog entities from the catalog's relational views.
//
// Two views are expected:
//
//	mv_cruise_info(cruise_id, ufl, cruise_info, enabled)
//	mv_cruise_date_range_info(cruise_id, cruise_date_range_id, cruise_date_range_info)
//
// cruise_info and cruise_date_range_info hold JSON documents. The reader works
// against PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite); queries are built
// with squirrel in the placeholder format of the selected driver.
package sqlsource
