package model

import "time"

// APIRequest is one row of the usage ledger. Rows are append-only.
type APIRequest struct {
	ID             int64     `json:"id"`
	APIID          int64     `json:"api_id"`
	APIVersion     string    `json:"api_version"`
	UserID         int64     `json:"user_id"`
	APIKey         string    `json:"api_key"`
	SubscriptionID int64     `json:"subscription_id"`
	RequestURL     string    `json:"request_url"`
	RequestMethod  string    `json:"request_method"`
	RequestBody    string    `json:"request_body,omitempty"`
	ResponseBody   string    `json:"response_body,omitempty"`
	RequestAt      time.Time `json:"request_at"`
	ResponseAt     time.Time `json:"response_at"`
	ResponseTime   int64     `json:"response_time"`
	HTTPStatus     int       `json:"http_status"`
}
