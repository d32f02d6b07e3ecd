package errprocess

import (
	"errors"
	"fmt"

	"social_chat_sync/pkg/logger"

	"go.uber.org/zap"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap logs err with context and returns it wrapped so errors.Is still matches
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	logger.Log.Error(msg, zap.Error(err))
	return fmt.Errorf("%s: %w", msg, err)
}
