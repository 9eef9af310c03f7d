package services

import (
	"context"

	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/tasks"
	"go.uber.org/zap"
)

// enqueueEmail schedules a notification. Delivery is best effort: a missing
// queue or recipient, or an enqueue failure, is logged and never fails the caller.
func enqueueEmail(ctx context.Context, client tasks.TaskClient, to, templateID string, data map[string]interface{}) {
	log := logger.FromContext(ctx).With(zap.String("template_id", templateID))
	if client == nil {
		log.Debug("Task queue disabled, notification skipped")
		return
	}
	if to == "" {
		log.Debug("No recipient address, notification skipped")
		return
	}

	task, err := tasks.NewEmailDeliveryTask(tasks.EmailTaskPayload{
		To:         to,
		TemplateID: templateID,
		Locale:     models.DefaultLocale,
		Data:       data,
	})
	if err != nil {
		log.Error("Failed to build email task", zap.Error(err))
		return
	}
	info, err := client.EnqueueContext(ctx, task)
	if err != nil {
		log.Error("Failed to enqueue email task", zap.Error(err))
		return
	}
	log.Debug("Email task enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
}

func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
