// Package catalog reads entities from the cruise catalog's HTTP API.
//
// The id listing endpoint answers with either bare ids or flat records that
// carry a date range, wrapped in {"data": [...]} or as a bare array. The batch
// endpoint takes repeated entityId[] query parameters and answers with one
// flat record per date range:
//
//	{"cruise_id": 1, "ufl": "VOLGA", "cruise_info": {...},
//	 "cruise_date_range_id": 10, "cruise_date_range_info": {...}}
//
// Requests are throttled with a token bucket; a 429 answer pauses the client
// for the advertised Retry-After period.
package catalog
