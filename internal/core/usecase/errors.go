package usecase

import "errors"

var (
	errEmptyQuery    = errors.New("query text is empty")
	errMissingUserID = errors.New("user id is required")
)
