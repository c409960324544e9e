// 课程目录导入脚本
//
// 从 configs/catalog.yaml 读取课程结构并写入数据库。
// 已存在同名课程时跳过，可重复执行。
//
// 用法: go run scripts/seed_catalog.go

package main

import (
	"errors"
	"heartwise_backend/internal/config"
	"heartwise_backend/internal/model"
	"heartwise_backend/pkg/database"
	"heartwise_backend/pkg/logger"
	"log"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type catalogFile struct {
	Programs []catalogProgram `yaml:"programs"`
}

type catalogProgram struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	DurationDays int            `yaml:"duration_days"`
	Phases       []catalogPhase `yaml:"phases"`
}

type catalogPhase struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Order       int           `yaml:"order"`
	Tasks       []catalogTask `yaml:"tasks"`
}

type catalogTask struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Order       int    `yaml:"order"`
}

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	data, err := os.ReadFile("configs/catalog.yaml")
	if err != nil {
		log.Fatalf("无法读取课程目录文件: %v", err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		log.Fatalf("解析课程目录失败: %v", err)
	}

	for _, p := range catalog.Programs {
		if err := seedProgram(db, p); err != nil {
			log.Fatalf("导入课程 %q 失败: %v", p.Name, err)
		}
	}

	log.Println("课程目录导入完成")
}

func seedProgram(db *gorm.DB, p catalogProgram) error {
	var existing model.Program
	err := db.Where("name = ?", p.Name).First(&existing).Error
	if err == nil {
		log.Printf("课程已存在，跳过: %s", p.Name)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	program := model.Program{
		Name:         p.Name,
		Description:  p.Description,
		DurationDays: p.DurationDays,
		IsActive:     true,
	}
	for _, ph := range p.Phases {
		phase := model.Phase{
			Name:        ph.Name,
			Description: ph.Description,
			Order:       ph.Order,
		}
		for _, t := range ph.Tasks {
			phase.Tasks = append(phase.Tasks, model.Task{
				Title:       t.Title,
				Description: t.Description,
				Type:        model.TaskType(t.Type),
				Order:       t.Order,
			})
		}
		program.Phases = append(program.Phases, phase)
	}

	if err := db.Create(&program).Error; err != nil {
		return err
	}
	log.Printf("已导入课程: %s（%d 个阶段）", program.Name, len(program.Phases))
	return nil
}
