package model

import "time"

type APIStatus string

const (
	APIActive   APIStatus = "active"
	APIInactive APIStatus = "inactive"
)

type API struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	SupplierID  int64     `json:"supplier_id"`
	Status      APIStatus `json:"status"`
	ProductID   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type VersionStatus string

const (
	VersionPending   VersionStatus = "pending"
	VersionActive    VersionStatus = "active"
	VersionSuspended VersionStatus = "suspended"
)

// APIVersion is identified by (APIID, Version).
type APIVersion struct {
	APIID     int64         `json:"api_id"`
	Version   string        `json:"version"`
	BaseURL   string        `json:"base_url"`
	Status    VersionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// VersionHeader is injected into every call forwarded to its version.
type VersionHeader struct {
	ID      int64  `json:"id"`
	APIID   int64  `json:"api_id"`
	Version string `json:"version"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

type VersionEndpoint struct {
	ID          int64  `json:"id"`
	APIID       int64  `json:"api_id"`
	Version     string `json:"version"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

// Plan is unique per (APIID, Name). Price is in minor currency units and
// Duration is in seconds.
type Plan struct {
	APIID       int64     `json:"api_id"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	MaxRequests int64     `json:"max_requests"`
	Duration    int64     `json:"duration"`
	PriceID     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
