package services

import (
	"context"
	"sort"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
)

const statsWindowDays = 7

type StatsRepository interface {
	CountSessionsByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountSessionsByPriority(ctx context.Context) ([]models.PriorityCount, error)
	CountUnreadNotifications(ctx context.Context) (int64, error)
	CountAuditEntriesSince(ctx context.Context, since time.Time) (int64, error)
	DoctorWorkload(ctx context.Context) ([]models.DoctorWorkloadRow, error)
	CompletionSamples(ctx context.Context, since time.Time) ([]models.CompletionSample, error)
	SessionCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error)
}

type StatsUserRepository interface {
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
}

type SystemStats struct {
	UsersByRole         map[models.Role]int64          `json:"usersByRole"`
	SessionsByStatus    map[models.SessionStatus]int64 `json:"sessionsByStatus"`
	SessionsByPriority  map[models.Priority]int64      `json:"sessionsByPriority"`
	TotalSessions       int64                          `json:"totalSessions"`
	UnreadNotifications int64                          `json:"unreadNotifications"`
	AuditEntries24h     int64                          `json:"auditEntries24h"`
}

type DoctorWorkload struct {
	DoctorID   uint   `json:"doctorId"`
	Name       string `json:"name"`
	Assigned   int64  `json:"assigned"`
	InProgress int64  `json:"inProgress"`
	Completed  int64  `json:"completed"`
	Cancelled  int64  `json:"cancelled"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DetailedStats struct {
	SystemStats
	DoctorWorkload           []DoctorWorkload `json:"doctorWorkload"`
	AverageCompletionMinutes float64          `json:"averageCompletionMinutes"`
	SessionsPerDay           []DayCount       `json:"sessionsPerDay"`
}

type StatsService struct {
	stats StatsRepository
	users StatsUserRepository
	now   func() time.Time
}

func NewStatsService(stats StatsRepository, users StatsUserRepository) *StatsService {
	return &StatsService{stats: stats, users: users, now: time.Now}
}

func (service *StatsService) Overview(ctx context.Context) (SystemStats, error) {
	usersByRole, err := service.users.CountByRole(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	statusRows, err := service.stats.CountSessionsByStatus(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	priorityRows, err := service.stats.CountSessionsByPriority(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	unread, err := service.stats.CountUnreadNotifications(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	audited, err := service.stats.CountAuditEntriesSince(ctx, service.now().UTC().Add(-24*time.Hour))
	if err != nil {
		return SystemStats{}, err
	}

	stats := SystemStats{
		UsersByRole:         map[models.Role]int64{models.RoleAdmin: 0, models.RoleDoctor: 0, models.RoleMedic: 0},
		SessionsByStatus:    map[models.SessionStatus]int64{},
		SessionsByPriority:  map[models.Priority]int64{},
		UnreadNotifications: unread,
		AuditEntries24h:     audited,
	}
	for role, count := range usersByRole {
		stats.UsersByRole[role] = count
	}
	for _, status := range []models.SessionStatus{
		models.SessionStatusOpen, models.SessionStatusAssigned, models.SessionStatusInProgress,
		models.SessionStatusCompleted, models.SessionStatusCancelled,
	} {
		stats.SessionsByStatus[status] = 0
	}
	for _, row := range statusRows {
		stats.SessionsByStatus[row.Status] = row.Count
		stats.TotalSessions += row.Count
	}
	for _, priority := range []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent} {
		stats.SessionsByPriority[priority] = 0
	}
	for _, row := range priorityRows {
		stats.SessionsByPriority[row.Priority] = row.Count
	}
	return stats, nil
}

func (service *StatsService) Detailed(ctx context.Context) (DetailedStats, error) {
	overview, err := service.Overview(ctx)
	if err != nil {
		return DetailedStats{}, err
	}

	workload, err := service.doctorWorkload(ctx)
	if err != nil {
		return DetailedStats{}, err
	}

	now := service.now().UTC()
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(statsWindowDays - 1))

	samples, err := service.stats.CompletionSamples(ctx, windowStart)
	if err != nil {
		return DetailedStats{}, err
	}
	created, err := service.stats.SessionCreationTimes(ctx, windowStart)
	if err != nil {
		return DetailedStats{}, err
	}

	return DetailedStats{
		SystemStats:              overview,
		DoctorWorkload:           workload,
		AverageCompletionMinutes: averageCompletionMinutes(samples),
		SessionsPerDay:           bucketByDay(created, windowStart, statsWindowDays),
	}, nil
}

func (service *StatsService) doctorWorkload(ctx context.Context) ([]DoctorWorkload, error) {
	rows, err := service.stats.DoctorWorkload(ctx)
	if err != nil {
		return nil, err
	}
	doctors, _, err := service.users.List(ctx, models.UserFilter{Role: models.RoleDoctor, Page: models.NewPage(1, models.MaxPageLimit)})
	if err != nil {
		return nil, err
	}

	byDoctor := make(map[uint]*DoctorWorkload, len(doctors))
	for _, doctor := range doctors {
		byDoctor[doctor.ID] = &DoctorWorkload{DoctorID: doctor.ID, Name: doctor.FullName()}
	}
	for _, row := range rows {
		entry, ok := byDoctor[row.DoctorID]
		if !ok {
			entry = &DoctorWorkload{DoctorID: row.DoctorID}
			byDoctor[row.DoctorID] = entry
		}
		switch row.Status {
		case models.SessionStatusAssigned:
			entry.Assigned += row.Count
		case models.SessionStatusInProgress:
			entry.InProgress += row.Count
		case models.SessionStatusCompleted:
			entry.Completed += row.Count
		case models.SessionStatusCancelled:
			entry.Cancelled += row.Count
		}
	}

	workload := make([]DoctorWorkload, 0, len(byDoctor))
	for _, entry := range byDoctor {
		workload = append(workload, *entry)
	}
	sort.Slice(workload, func(i, j int) bool {
		left := workload[i].Assigned + workload[i].InProgress
		right := workload[j].Assigned + workload[j].InProgress
		if left == right {
			return workload[i].DoctorID < workload[j].DoctorID
		}
		return left > right
	})
	return workload, nil
}

func averageCompletionMinutes(samples []models.CompletionSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, sample := range samples {
		total += sample.CompletedAt.Sub(sample.CreatedAt)
	}
	return total.Minutes() / float64(len(samples))
}

func bucketByDay(times []time.Time, start time.Time, days int) []DayCount {
	buckets := make([]DayCount, days)
	for index := range buckets {
		buckets[index].Date = start.AddDate(0, 0, index).Format("2006-01-02")
	}
	for _, at := range times {
		index := int(at.UTC().Sub(start) / (24 * time.Hour))
		if index >= 0 && index < days {
			buckets[index].Count++
		}
	}
	return buckets
}
