package model

// DayStats counts visited items created on one calendar day.
type DayStats struct {
	Files int `json:"files"`
	Links int `json:"links"`
}

// Stats maps a UTC calendar day ("2006-01-02") to its counts.
// Days without visited items are absent.
type Stats map[string]DayStats

// StatsDayLayout is the key format of Stats.
const StatsDayLayout = "2006-01-02"
