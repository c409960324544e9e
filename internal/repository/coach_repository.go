package repository

import (
	"heartwise_backend/internal/model"

	"gorm.io/gorm"
)

type CoachRepository struct {
	DB *gorm.DB
}

func NewCoachRepository(db *gorm.DB) *CoachRepository {
	return &CoachRepository{DB: db}
}

func (r *CoachRepository) CreateSession(session *model.CoachSession) error {
	return r.DB.Create(session).Error
}

func (r *CoachRepository) FindSession(sessionID string, userID uint) (*model.CoachSession, error) {
	var session model.CoachSession
	err := r.DB.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *CoachRepository) ListSessionsByUser(userID uint) ([]model.CoachSession, error) {
	var sessions []model.CoachSession
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}

func (r *CoachRepository) CreateMessage(message *model.CoachMessage) error {
	return r.DB.Create(message).Error
}

// ListMessages 按时间正序返回会话消息，limit <= 0 时不限制
func (r *CoachRepository) ListMessages(sessionID string, limit int) ([]model.CoachMessage, error) {
	var messages []model.CoachMessage
	query := r.DB.Where("session_id = ?", sessionID).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}
