package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrProgramNotFound    = errors.New("program not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this program")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrTaskNotSubmitted   = errors.New("task has no submitted response")
	ErrProfileNotFound    = errors.New("coaching profile not found")
	ErrSessionNotFound    = errors.New("session not found")
)
