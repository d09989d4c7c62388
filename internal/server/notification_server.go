package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"trade_market/internal/auth"
	"trade_market/internal/domain/entity"
	"trade_market/internal/domain/value"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/httpx/reply"
)

type notificationService interface {
	List(ctx context.Context, caller uuid.UUID, unreadOnly bool, page value.Page) ([]entity.Notification, error)
	MarkRead(ctx context.Context, caller, id uuid.UUID) error
	Delete(ctx context.Context, caller, id uuid.UUID) error
}

type NotificationServer struct {
	notificationService notificationService
}

func NewNotificationServer(notificationService notificationService) NotificationServer {
	return NotificationServer{
		notificationService: notificationService,
	}
}

func (s NotificationServer) getV1Notifications(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return fmt.Errorf("auth.CallerFromContext: %w", err)
	}

	unreadOnly, err := queryBool(r, "unread")
	if err != nil {
		return err
	}

	page, err := queryPage(r)
	if err != nil {
		return err
	}

	notifications, err := s.notificationService.List(ctx, caller, unreadOnly, page)
	if err != nil {
		return fmt.Errorf("notificationService.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTNotifications(notifications))

	return nil
}

func (s NotificationServer) putV1NotificationRead(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, id, err := callerAndNotification(r)
	if err != nil {
		return err
	}

	if err = s.notificationService.MarkRead(ctx, caller, id); err != nil {
		return fmt.Errorf("notificationService.MarkRead: %w", err)
	}

	reply.OK(w)

	return nil
}

func (s NotificationServer) deleteV1Notification(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	caller, id, err := callerAndNotification(r)
	if err != nil {
		return err
	}

	if err = s.notificationService.Delete(ctx, caller, id); err != nil {
		return fmt.Errorf("notificationService.Delete: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

func callerAndNotification(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	caller, err := auth.CallerFromContext(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("auth.CallerFromContext: %w", err)
	}

	id, err := pathUUID(r, "notification_id", errcodes.InvalidNotification)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	return caller, id, nil
}
