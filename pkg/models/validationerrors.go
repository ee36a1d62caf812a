// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"errors"
)

var (
	ValidationErrorMissingWatchID   = errors.New("watcher dump has no watch id")
	ValidationErrorMissingProvider  = errors.New("watcher dump has no provider")
	ValidationErrorMissingStartTime = errors.New("watcher dump has no start time")
)

var validationErrorCodeMap = map[error]int{
	ValidationErrorMissingWatchID:   510201,
	ValidationErrorMissingProvider:  510202,
	ValidationErrorMissingStartTime: 510203,
}

// ValidationErrorCode returns a code for the error.
// It returns 20002 if the error is not registered in the map.
func ValidationErrorCode(err error) int {
	code, ok := validationErrorCodeMap[err]
	if !ok {
		return 20002
	}
	return code
}
