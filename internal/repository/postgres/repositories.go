package postgres

import "time"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Identities *IdentityRepository
	Habits     *HabitRepository
	Logs       *LogRepository
}

// NewRepositories wires all repositories backed by the provided executor.
func NewRepositories(exec pgExecutor, timeout time.Duration) *Repositories {
	return &Repositories{
		Identities: NewIdentityRepository(exec, timeout),
		Habits:     NewHabitRepository(exec, timeout),
		Logs:       NewLogRepository(exec, timeout),
	}
}
