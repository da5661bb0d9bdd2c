package models

// Alert is derived on demand from a child's most recent check-in. It is never stored.
type Alert struct {
	Child   Child    `json:"child"`
	Checkin Checkin  `json:"checkin"`
	Issues  []string `json:"issues"`
}
