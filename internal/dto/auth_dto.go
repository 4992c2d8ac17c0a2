package dto

import (
	"time"

	"ecospectre-be/internal/entity"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	Id        string              `json:"id"`
	Email     string              `json:"email"`
	Settings  entity.UserSettings `json:"settings"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UpdateSettingsRequest struct {
	Settings *UserSettingsRequest `json:"settings" validate:"required"`
}

type UserSettingsRequest struct {
	Notifications *bool   `json:"notifications"`
	Theme         *string `json:"theme" validate:"omitempty,oneof=light dark system"`
	DailyGoal     *int    `json:"dailyGoal" validate:"omitempty,min=0,max=50"`
}
