package model

import "time"

// Setting is a persisted key/value configuration entry. UpdatedAt is
// maintained by a database trigger so it refreshes on every update no matter
// which client performed the write.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Well-known setting keys.
const (
	SettingRegistryURL = "registry_url"
)
