// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Error semantics:
//   - When a user is not found, functions return ErrNotFound.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

// UpsertUser returns the user for the given Telegram chat, creating the row
// on first contact and refreshing the profile fields on subsequent ones.
func UpsertUser(ctx context.Context, db *gorm.DB, chatID int64, username, firstName, lastName string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = domain.User{
			ChatID:    chatID,
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
			CreatedAt: time.Now().UTC(),
		}
		if cerr := db.WithContext(ctx).Create(&u).Error; cerr != nil {
			return nil, cerr
		}
		return &u, nil
	case err != nil:
		return nil, err
	}

	// Keep profile fields current; Telegram users rename themselves freely.
	if u.Username != username || u.FirstName != firstName || u.LastName != lastName {
		updates := map[string]any{
			"username":   username,
			"first_name": firstName,
			"last_name":  lastName,
		}
		if uerr := db.WithContext(ctx).Model(&u).Updates(updates).Error; uerr != nil {
			return nil, uerr
		}
		u.Username, u.FirstName, u.LastName = username, firstName, lastName
	}
	return &u, nil
}

// GetUserByChatID fetches a user by their Telegram chat id.
func GetUserByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CountUsers returns the total number of registered users.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error
	return total, err
}
