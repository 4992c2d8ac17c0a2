package mapper

import (
	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/model"

	"gorm.io/datatypes"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	s := u.Settings.Data()
	return &entity.User{
		Id:           u.Id,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Settings: entity.UserSettings{
			Notifications: s.Notifications,
			Theme:         s.Theme,
			DailyGoal:     s.DailyGoal,
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		Id:           u.Id,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Settings: datatypes.NewJSONType(model.UserSettings{
			Notifications: u.Settings.Notifications,
			Theme:         u.Settings.Theme,
			DailyGoal:     u.Settings.DailyGoal,
		}),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
