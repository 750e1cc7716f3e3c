package livestatus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/langchou/tripbook/internal/models"
)

// DefaultKey Redis 哈希键与发布频道
const DefaultKey = "tripbook:live"

// 哈希字段
const (
	FieldHasActiveTrip = "has_active_trip"
	FieldTripID        = "trip_id"
	FieldStartTime     = "start_time"
	FieldStartBattery  = "start_battery"
	FieldStartOdometer = "start_odometer"
	FieldIsConfigured  = "is_configured"
	FieldUpdatedAt     = "updated_at"
)

// tripFields 空闲时删除的字段
var tripFields = []string{FieldTripID, FieldStartTime, FieldStartBattery, FieldStartOdometer}

// RedisSink 把实时状态写入 Redis 哈希并发布变更通知
// 外部小组件读取哈希获取当前状态，或订阅频道等待变化
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink 创建 Redis 状态发布器
func NewRedisSink(client *redis.Client, key string) *RedisSink {
	if key == "" {
		key = DefaultKey
	}
	return &RedisSink{client: client, key: key}
}

// Connect 创建 Redis 客户端并检查连接
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// Publish 在一个 pipeline 中更新哈希并发布通知
func (s *RedisSink) Publish(ctx context.Context, status models.LiveStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal live status: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.key, hashValues(status))
	if !status.HasActiveTrip {
		pipe.HDel(ctx, s.key, tripFields...)
	}
	pipe.Publish(ctx, s.key, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish live status: %w", err)
	}
	return nil
}

// Read 读取当前哈希内容
func (s *RedisSink) Read(ctx context.Context) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read live status: %w", err)
	}
	return values, nil
}

// hashValues 状态转换为哈希字段，空闲时只包含通用字段
func hashValues(status models.LiveStatus) map[string]interface{} {
	values := map[string]interface{}{
		FieldHasActiveTrip: strconv.FormatBool(status.HasActiveTrip),
		FieldIsConfigured:  strconv.FormatBool(status.IsConfigured),
		FieldUpdatedAt:     strconv.FormatInt(status.UpdatedAt.Unix(), 10),
	}
	if !status.HasActiveTrip {
		return values
	}

	if status.TripID != nil {
		values[FieldTripID] = status.TripID.String()
	}
	if status.StartTime != nil {
		values[FieldStartTime] = strconv.FormatInt(status.StartTime.Unix(), 10)
	}
	values[FieldStartBattery] = strconv.FormatFloat(status.StartBatteryPercent, 'f', 1, 64)
	values[FieldStartOdometer] = strconv.FormatFloat(status.StartOdometerKm, 'f', 1, 64)
	return values
}
