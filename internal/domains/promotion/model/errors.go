package model

import "errors"

var (
	ErrPromotionNotFound    = errors.New("promotion not found")
	ErrInvalidPromotionType = errors.New("invalid promotion type")
	ErrVersionConflict      = errors.New("promotion was modified by another request")
)
