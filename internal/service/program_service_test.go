package service

import (
	"heartwise_backend/internal/model"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProgramsOnlyActive(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	require.NoError(t, db.Create(&model.Program{Name: "下架课程", IsActive: false}).Error)

	// false 必须原样落库，不能被列默认值吃掉
	var inactive model.Program
	require.NoError(t, db.Where("name = ?", "下架课程").First(&inactive).Error)
	require.False(t, inactive.IsActive)

	svc := NewProgramService(repository.NewProgramRepository(db), nil)
	programs, err := svc.ListPrograms()
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, "重建连接", programs[0].Name)
}

func TestGetProgramTreeOrdered(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)

	// Redis 不可用时直接落库查询
	svc := NewProgramService(repository.NewProgramRepository(db), nil)
	got, err := svc.GetProgram(program.ID)
	require.NoError(t, err)
	require.Len(t, got.Phases, 2)
	assert.Equal(t, 1, got.Phases[0].Order)
	assert.Equal(t, 2, got.Phases[1].Order)
	require.Len(t, got.Phases[0].Tasks, 2)
	assert.Equal(t, 1, got.Phases[0].Tasks[0].Order)
	assert.Equal(t, 2, got.Phases[0].Tasks[1].Order)

	_, err = svc.GetProgram(999)
	assert.ErrorIs(t, err, util.ErrProgramNotFound)
}
