package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/models"
	"github.com/danukusuma/servehub_be/internal/realtime"
)

// Channel is the redis pub/sub channel instances use to fan notifications out
// to hubs on other processes.
const Channel = "servehub:notifications"

// Dispatcher stores a notification row and pushes it to connected clients.
// It is strictly fire-and-forget: failures are logged, never returned, so a
// broken push can never roll back the business transaction that triggered it.
type Dispatcher struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewDispatcher(gdb *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *Dispatcher {
	return &Dispatcher{DB: gdb, Hub: hub, RDB: rdb}
}

func (d *Dispatcher) Notify(userID uuid.UUID, ntype models.NotificationType, title, message string, bookingID *uuid.UUID) {
	n := models.Notification{
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		BookingID: bookingID,
	}
	if err := d.DB.Create(&n).Error; err != nil {
		log.Printf("Failed to store notification for user %s: %v", userID, err)
		return
	}

	payload := realtime.Envelope{
		UserID: userID,
		Data: map[string]interface{}{
			"type":         "notification",
			"notification": n,
		},
	}

	if d.Hub != nil {
		d.Hub.SendToUser(userID, payload.Data)
	}

	if d.RDB != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Failed to marshal notification payload: %v", err)
			return
		}
		if err := d.RDB.Publish(context.Background(), Channel, b).Err(); err != nil {
			log.Printf("Failed to publish notification to redis: %v", err)
		}
	}
}

// List returns the user's notifications, newest first.
func (d *Dispatcher) List(userID uuid.UUID, limit int) ([]models.Notification, error) {
	var list []models.Notification
	err := d.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// MarkRead flags a single notification as read.
func (d *Dispatcher) MarkRead(userID, notificationID uuid.UUID) error {
	return d.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true).Error
}
