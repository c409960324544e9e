package database

import (
	"encoding/json"
	"fmt"
	"heartwise_backend/internal/config"
	"heartwise_backend/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 建立 MySQL 连接。migrate 为 true 时执行 AutoMigrate 并写入默认问卷，
// release 环境默认跳过迁移，通过 -migrate 参数显式触发。
func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// 把驱动的唯一键冲突翻译成 gorm.ErrDuplicatedKey，业务层据此判重
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if !migrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Program{},
		&model.Phase{},
		&model.Task{},
		&model.UserProgress{},
		&model.TaskProgress{},
		&model.AssessmentQuestion{},
		&model.AssessmentSubmission{},
		&model.CoachingProfile{},
		&model.CoachSession{},
		&model.CoachMessage{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedAssessmentQuestions(db)

	return db, nil
}

// 默认的入门测评问卷（表为空时写入）
func seedAssessmentQuestions(db *gorm.DB) {
	var count int64
	db.Model(&model.AssessmentQuestion{}).Count(&count)
	if count > 0 {
		return
	}

	opts := func(values ...string) json.RawMessage {
		b, _ := json.Marshal(values)
		return b
	}

	questions := []model.AssessmentQuestion{
		{Step: 1, Order: 1, Prompt: "你目前的感情状态是？", Kind: "single_choice",
			Options: opts("单身", "约会中", "稳定伴侣", "已婚")},
		{Step: 1, Order: 2, Prompt: "这段关系（或上一段关系）持续了多久？", Kind: "single_choice",
			Options: opts("不到一年", "1-3年", "3-7年", "7年以上")},
		{Step: 1, Order: 3, Prompt: "你希望通过教练计划改善什么？", Kind: "free_text"},
		{Step: 2, Order: 1, Prompt: "发生分歧时，你通常会先冷静下来再沟通。", Kind: "scale"},
		{Step: 2, Order: 2, Prompt: "你能自然地向伴侣表达自己的需求。", Kind: "scale"},
		{Step: 2, Order: 3, Prompt: "你担心对方离开或疏远自己。", Kind: "scale"},
		{Step: 3, Order: 1, Prompt: "最近一次让你感到被理解的时刻是什么？", Kind: "free_text"},
		{Step: 3, Order: 2, Prompt: "最近一次争执中，你最在意的是什么？", Kind: "free_text"},
	}

	for _, q := range questions {
		db.Create(&q)
	}
}
