package model

// Package model defines domain data structures shared across the service:
// download tasks, status enums, and the API request/response contracts.
