package homeassistant

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntityState Home Assistant 实体状态
type EntityState struct {
	EntityID    string            `json:"entity_id"`
	State       string            `json:"state"`
	LastUpdated time.Time         `json:"last_updated"`
	Attributes  *EntityAttributes `json:"attributes,omitempty"`
}

// EntityAttributes 实体属性 (只取需要的字段)
type EntityAttributes struct {
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	FriendlyName      string `json:"friendly_name,omitempty"`
}

// Float 将 state 解析为数值
// 传感器离线时 state 为 "unavailable"/"unknown"，按响应格式错误处理
func (s *EntityState) Float() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.State), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: entity %s state %q is not numeric", ErrMalformedResponse, s.EntityID, s.State)
	}
	return v, nil
}

// 错误定义
var (
	ErrInvalidEndpoint   = errors.New("invalid home assistant url")
	ErrUnauthenticated   = errors.New("home assistant authentication failed")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnreachable       = errors.New("home assistant unreachable")
)

// EntityNotFoundError 实体不存在 (404)
type EntityNotFoundError struct {
	EntityID string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.EntityID)
}

// Is 使 errors.Is(err, ErrEntityNotFound) 成立
func (e *EntityNotFoundError) Is(target error) bool {
	return target == ErrEntityNotFound
}
