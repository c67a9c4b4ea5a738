package service

import "errors"

// --- Error Definitions ---
var (
	// Not-found family; callers treat these as terminal for the request.
	ErrTemplateNotFound = errors.New("plan template not found")
	ErrWeekNotFound     = errors.New("plan week not found")
	ErrPlanDayNotFound  = errors.New("plan day not found")
	ErrProgressNotFound = errors.New("plan day progress not found") // Also returned for rows owned by another user

	// ErrNoMatchingTemplate is the user-actionable invalid-state error of CreateDefaultPlanForUser.
	ErrNoMatchingTemplate = errors.New("no matching template")

	ErrInvalidInput = errors.New("invalid input")
)
