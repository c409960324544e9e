package repository

import (
	"heartwise_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) ListQuestions() ([]model.AssessmentQuestion, error) {
	var questions []model.AssessmentQuestion
	err := r.DB.Order("step ASC, `order` ASC").Find(&questions).Error
	return questions, err
}

func (r *AssessmentRepository) CreateSubmission(submission *model.AssessmentSubmission) error {
	return r.DB.Create(submission).Error
}

func (r *AssessmentRepository) FindProfileByUser(userID uint) (*model.CoachingProfile, error) {
	var profile model.CoachingProfile
	err := r.DB.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile 每个用户只保留一份画像，重测时覆盖
func (r *AssessmentRepository) UpsertProfile(profile *model.CoachingProfile) error {
	var existing model.CoachingProfile
	err := r.DB.Where("user_id = ?", profile.UserID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(profile).Error
	}
	if err != nil {
		return err
	}

	profile.ID = existing.ID
	profile.CreatedAt = existing.CreatedAt
	return r.DB.Save(profile).Error
}
