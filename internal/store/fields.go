// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import "time"

// Described is the optional free-text description carried by reference data
// such as roles, privileges, countries and ranks.
type Described struct {
	Description *string
}

// Timestamps are maintained by the database: created_at defaults to the
// insert time and updated_at is refreshed by the set_updated_at trigger.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}
