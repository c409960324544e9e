package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"heartwise_backend/internal/model"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const programCacheTTL = 10 * time.Minute

// ProgramService 课程目录查询。目录运行期只读，
// 整棵 Program/Phase/Task 树缓存在 Redis；报名和进度数据绝不缓存。
type ProgramService struct {
	ProgramRepo *repository.ProgramRepository
	Redis       *redis.Client
}

func NewProgramService(programRepo *repository.ProgramRepository, rdb *redis.Client) *ProgramService {
	return &ProgramService{
		ProgramRepo: programRepo,
		Redis:       rdb,
	}
}

func (s *ProgramService) ListPrograms() ([]model.Program, error) {
	return s.ProgramRepo.FindActive()
}

func (s *ProgramService) GetProgram(id uint) (*model.Program, error) {
	ctx := context.Background()
	key := fmt.Sprintf("catalog:program:%d", id)

	if s.Redis != nil {
		if data, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var cached model.Program
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	program, err := s.ProgramRepo.FindByIDWithTree(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProgramNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(program); err == nil {
			s.Redis.Set(ctx, key, data, programCacheTTL)
		}
	}

	return program, nil
}
