package models

import "time"

// DailyPrompt is the payload of the evening reminder push.
type DailyPrompt struct {
	Prompt    string    `json:"prompt"`
	Date      time.Time `json:"date"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Data flattens the reminder into FCM's string-only data map.
func (p DailyPrompt) Data() map[string]string {
	return map[string]string{
		"type":       "daily_prompt",
		"prompt":     p.Prompt,
		"date":       p.Date.Format("2006-01-02"),
		"expires_at": p.ExpiresAt.Format(time.RFC3339),
	}
}
