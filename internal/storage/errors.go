package storage

import (
	"errors"
	"fmt"
	"strings"

	"rocket-backend/internal/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidData     = errors.New("invalid data")
	ErrStorageInit     = errors.New("storage initialization failed")
	ErrFileOperation   = errors.New("file operation failed")
)

// validateRecord 记录必须带有可作为文件名/键使用的 UserID
func validateRecord(record *model.SessionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidData)
	}
	return validateUserID(record.UserID)
}

func validateUserID(userID string) error {
	if userID == "" || strings.ContainsAny(userID, `/\`) || strings.Contains(userID, "..") {
		return fmt.Errorf("%w: bad user id %q", ErrInvalidData, userID)
	}
	return nil
}
