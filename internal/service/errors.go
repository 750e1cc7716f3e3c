package service

import (
	"errors"
	"fmt"

	"github.com/langchou/tripbook/internal/api/homeassistant"
	"github.com/langchou/tripbook/internal/repository"
)

// 错误定义
var (
	// ErrNotConfigured 未配置数据来源 (既没有 Home Assistant 也没有开启演示模式)
	ErrNotConfigured = errors.New("home assistant is not configured")
	// ErrAlreadyActive 已有进行中的行程
	ErrAlreadyActive = errors.New("a trip is already active")
	// ErrNoActiveTrip 没有进行中的行程
	ErrNoActiveTrip = errors.New("no active trip")
	// ErrTripNotFound 行程不存在
	ErrTripNotFound = repository.ErrTripNotFound
)

// ManualContext 需要手动输入的场景
type ManualContext string

const (
	ContextStart ManualContext = "start"
	ContextEnd   ManualContext = "end"
)

// ManualInputRequired 自动读取车辆数据失败，调用方应让用户手动输入电量
// 这不是普通错误：调用方不应直接展示错误信息，而是转入手动输入流程
type ManualInputRequired struct {
	Context               ManualContext
	DefaultBatteryPercent float64
	Reason                string
	Cause                 error
}

func (e *ManualInputRequired) Error() string {
	return fmt.Sprintf("manual input required (%s): %v", e.Context, e.Cause)
}

func (e *ManualInputRequired) Unwrap() error {
	return e.Cause
}

// PersistenceError 存储写入失败，内存状态未推进
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AcquisitionReason 数据获取失败原因，便于前端区分网络问题和凭据问题
func AcquisitionReason(err error) string {
	var notFound *homeassistant.EntityNotFoundError
	switch {
	case errors.Is(err, homeassistant.ErrUnauthenticated):
		return "unauthenticated"
	case errors.As(err, &notFound):
		return "entity_not_found"
	case errors.Is(err, homeassistant.ErrInvalidEndpoint):
		return "invalid_endpoint"
	case errors.Is(err, homeassistant.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "unreachable"
	}
}
