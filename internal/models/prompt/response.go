package models

import "time"

type PromptResponse struct {
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expiresAt"`
	Completed bool      `json:"completed"`
	Active    bool      `json:"active"`
}

type SetPromptRequest struct {
	Text string `json:"text" binding:"required"`
}

type StreakResponse struct {
	Streak int `json:"streak"`
}
