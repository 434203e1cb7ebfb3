package db

import (
	"context"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
	"gorm.io/gorm"
)

const prioritySortExpression = "CASE priority WHEN 'URGENT' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 1 ELSE 0 END DESC, created_at DESC, id DESC"

var terminalSessionStatuses = []models.SessionStatus{
	models.SessionStatusCompleted,
	models.SessionStatusCancelled,
}

type SessionRepository struct {
	database *gorm.DB
}

func NewSessionRepository(database *gorm.DB) *SessionRepository {
	return &SessionRepository{database: database}
}

// Create inserts the session together with its medical record.
func (repo *SessionRepository) Create(ctx context.Context, session *models.Session, record *models.MedicalRecord) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("MedicalRecord", "VitalSigns", "Notes", "CreatedBy", "AssignedTo").Create(session).Error; err != nil {
			return err
		}
		if record == nil {
			record = &models.MedicalRecord{}
		}
		record.SessionID = session.ID
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		session.MedicalRecord = record
		return nil
	})
}

func (repo *SessionRepository) FindByID(ctx context.Context, sessionID uint) (models.Session, error) {
	var session models.Session
	if err := repo.database.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (repo *SessionRepository) FindDetailed(ctx context.Context, sessionID uint) (models.Session, error) {
	var session models.Session
	err := repo.database.WithContext(ctx).
		Preload("CreatedBy").
		Preload("AssignedTo").
		Preload("MedicalRecord").
		Preload("VitalSigns", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("recorded_at DESC, id DESC")
		}).
		Preload("Notes", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		First(&session, sessionID).Error
	if err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (repo *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int64, error) {
	query := repo.database.WithContext(ctx).Model(&models.Session{})

	switch filter.Scope.Role {
	case models.RoleMedic:
		query = query.Where("created_by_id = ?", filter.Scope.ViewerID)
	case models.RoleDoctor:
		if filter.Scope.IncludeArchive {
			query = query.Where(
				"(assigned_to_id = ? OR status = ? OR status IN ?)",
				filter.Scope.ViewerID, models.SessionStatusOpen, terminalSessionStatuses,
			)
		} else {
			query = query.Where("(assigned_to_id = ? OR status = ?)", filter.Scope.ViewerID, models.SessionStatusOpen)
		}
	}

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case models.SessionSortOldest:
		query = query.Order("created_at ASC, id ASC")
	case models.SessionSortPriority:
		query = query.Order(prioritySortExpression)
	default:
		query = query.Order("created_at DESC, id DESC")
	}

	sessions := make([]models.Session, 0, filter.Page.Limit)
	if err := query.
		Preload("CreatedBy").
		Preload("AssignedTo").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit).
		Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// Assign claims an OPEN, unassigned session. It reports false when another
// writer got there first.
func (repo *SessionRepository) Assign(ctx context.Context, sessionID uint, doctorID uint) (bool, error) {
	result := repo.database.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ? AND assigned_to_id IS NULL", sessionID, models.SessionStatusOpen).
		Updates(map[string]any{
			"assigned_to_id": doctorID,
			"status":         models.SessionStatusAssigned,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Transition moves the session to a new status only while it is still in one of
// the expected source statuses and has never been completed.
func (repo *SessionRepository) Transition(
	ctx context.Context,
	sessionID uint,
	from []models.SessionStatus,
	to models.SessionStatus,
	updates map[string]any,
) (bool, error) {
	values := make(map[string]any, len(updates)+2)
	for key, value := range updates {
		values[key] = value
	}
	values["status"] = to
	values["updated_at"] = time.Now().UTC()

	result := repo.database.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status IN ? AND completed_at IS NULL", sessionID, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateMetadata applies field updates while the session is not terminal.
func (repo *SessionRepository) UpdateMetadata(ctx context.Context, sessionID uint, updates map[string]any) (bool, error) {
	values := make(map[string]any, len(updates)+1)
	for key, value := range updates {
		values[key] = value
	}
	values["updated_at"] = time.Now().UTC()

	result := repo.database.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status NOT IN ?", sessionID, terminalSessionStatuses).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (repo *SessionRepository) Delete(ctx context.Context, sessionID uint) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		planIDs := tx.Model(&models.TreatmentPlan{}).Select("id").Where("session_id = ?", sessionID)
		if err := tx.Where("plan_id IN (?)", planIDs).Delete(&models.TreatmentStep{}).Error; err != nil {
			return err
		}
		for _, child := range []any{
			&models.TreatmentPlan{},
			&models.SessionTreatmentTemplate{},
			&models.VitalSign{},
			&models.Note{},
			&models.MedicalRecord{},
		} {
			if err := tx.Where("session_id = ?", sessionID).Delete(child).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.Session{}, sessionID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (repo *SessionRepository) FindMedicalRecord(ctx context.Context, sessionID uint) (models.MedicalRecord, error) {
	var record models.MedicalRecord
	if err := repo.database.WithContext(ctx).Where("session_id = ?", sessionID).First(&record).Error; err != nil {
		return models.MedicalRecord{}, err
	}
	return record, nil
}

// SaveMedicalRecord creates the record when a legacy session has none.
func (repo *SessionRepository) SaveMedicalRecord(ctx context.Context, record *models.MedicalRecord) error {
	if record.ID == 0 {
		return repo.database.WithContext(ctx).Create(record).Error
	}
	return repo.database.WithContext(ctx).Save(record).Error
}

func (repo *SessionRepository) AddVitalSign(ctx context.Context, vital *models.VitalSign) error {
	return repo.database.WithContext(ctx).Create(vital).Error
}

func (repo *SessionRepository) ListVitalSigns(ctx context.Context, sessionID uint) ([]models.VitalSign, error) {
	vitals := make([]models.VitalSign, 0)
	if err := repo.database.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("recorded_at DESC, id DESC").
		Find(&vitals).Error; err != nil {
		return nil, err
	}
	return vitals, nil
}

func (repo *SessionRepository) AddNote(ctx context.Context, note *models.Note) error {
	return repo.database.WithContext(ctx).Create(note).Error
}

func (repo *SessionRepository) ListNotes(ctx context.Context, sessionID uint) ([]models.Note, error) {
	notes := make([]models.Note, 0)
	if err := repo.database.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
