package notify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.User{}, &models.Notification{}))
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB) uuid.UUID {
	t.Helper()
	u := models.User{Name: "User", Email: uuid.New().String()[:8] + "@example.com", Password: "x", Role: models.RoleCustomer, IsActive: true}
	require.NoError(t, gdb.Create(&u).Error)
	return u.ID
}

func TestNotifyStoresRow(t *testing.T) {
	gdb := openTestDB(t)
	d := NewDispatcher(gdb, nil, nil) // no hub, no redis: storage still works
	uid := seedUser(t, gdb)
	bookingID := uuid.New()

	d.Notify(uid, models.NotifyBooking, "New booking request", "You have a new booking", &bookingID)

	list, err := d.List(uid, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotifyBooking, list[0].Type)
	assert.Equal(t, "New booking request", list[0].Title)
	assert.False(t, list[0].IsRead)
	require.NotNil(t, list[0].BookingID)
	assert.Equal(t, bookingID, *list[0].BookingID)
}

func TestMarkRead(t *testing.T) {
	gdb := openTestDB(t)
	d := NewDispatcher(gdb, nil, nil)
	uid := seedUser(t, gdb)

	d.Notify(uid, models.NotifySystem, "Welcome", "Thanks for joining", nil)

	list, err := d.List(uid, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, d.MarkRead(uid, list[0].ID))

	list, err = d.List(uid, 10)
	require.NoError(t, err)
	assert.True(t, list[0].IsRead)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	gdb := openTestDB(t)
	d := NewDispatcher(gdb, nil, nil)
	owner := seedUser(t, gdb)
	other := seedUser(t, gdb)

	d.Notify(owner, models.NotifySystem, "Hello", "msg", nil)
	list, err := d.List(owner, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// another user cannot flip someone else's notification
	require.NoError(t, d.MarkRead(other, list[0].ID))

	list, err = d.List(owner, 10)
	require.NoError(t, err)
	assert.False(t, list[0].IsRead)
}

func TestListScopedToUser(t *testing.T) {
	gdb := openTestDB(t)
	d := NewDispatcher(gdb, nil, nil)
	a := seedUser(t, gdb)
	b := seedUser(t, gdb)

	d.Notify(a, models.NotifySystem, "A1", "msg", nil)
	d.Notify(a, models.NotifySystem, "A2", "msg", nil)
	d.Notify(b, models.NotifySystem, "B1", "msg", nil)

	list, err := d.List(a, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
