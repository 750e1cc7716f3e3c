package livestatus

import (
	"context"
	"errors"

	"github.com/langchou/tripbook/internal/models"
)

// Sink 状态发布目标
type Sink interface {
	Publish(ctx context.Context, status models.LiveStatus) error
}

// Multi 依次发布到多个目标，一个失败不影响其余目标
type Multi []Sink

func (m Multi) Publish(ctx context.Context, status models.LiveStatus) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(ctx, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
