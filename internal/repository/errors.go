package repository

import "github.com/arklim/daily-tracker/internal/core/domain"

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = domain.ErrNotFound
