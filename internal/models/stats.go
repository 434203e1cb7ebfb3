package models

import "time"

type StatusCount struct {
	Status SessionStatus
	Count  int64
}

type PriorityCount struct {
	Priority Priority
	Count    int64
}

type DoctorWorkloadRow struct {
	DoctorID uint
	Status   SessionStatus
	Count    int64
}

type CompletionSample struct {
	CreatedAt   time.Time
	CompletedAt time.Time
}
