package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserSettings struct {
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
	DailyGoal     int    `json:"dailyGoal"`
}

func DefaultUserSettings() UserSettings {
	return UserSettings{Notifications: true, Theme: "system", DailyGoal: 3}
}

type User struct {
	Id           uuid.UUID
	Email        string
	PasswordHash string
	Settings     UserSettings
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
