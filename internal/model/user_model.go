package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UserSettings struct {
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
	DailyGoal     int    `json:"dailyGoal"`
}

type User struct {
	Id           uuid.UUID                        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string                           `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string                           `gorm:"type:varchar(255);not null"`
	Settings     datatypes.JSONType[UserSettings] `gorm:"type:jsonb"`
	CreatedAt    time.Time                        `gorm:"autoCreateTime"`
	UpdatedAt    time.Time                        `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
