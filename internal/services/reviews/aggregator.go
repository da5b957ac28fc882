package reviews

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/apperr"
	"github.com/danukusuma/servehub_be/internal/db"
	"github.com/danukusuma/servehub_be/internal/models"
)

type Notifier interface {
	Notify(userID uuid.UUID, ntype models.NotificationType, title, message string, bookingID *uuid.UUID)
}

// Aggregator inserts reviews and keeps the provider's rating equal to the
// average of all their review ratings, rounded to 2 decimals.
type Aggregator struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewAggregator(gdb *gorm.DB, notifier Notifier) *Aggregator {
	return &Aggregator{DB: gdb, Notifier: notifier}
}

type SubmitInput struct {
	BookingID uuid.UUID
	Rating    int
	Comment   string
}

// Submit creates the one review a completed booking may have and recomputes
// the provider rating. The provider profile row is locked for the whole
// read-aggregate-write cycle so concurrent reviews for the same provider
// cannot lose updates.
func (a *Aggregator) Submit(customerID uuid.UUID, in SubmitInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.New(apperr.KindValidation, "rating must be between 1 and 5")
	}

	var review models.Review
	err := a.DB.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", in.BookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "booking not found")
			}
			return err
		}
		if booking.CustomerID != customerID {
			return apperr.New(apperr.KindNotAuthorized, "only the booking customer can review it")
		}
		if booking.Status != models.BookingStatusCompleted {
			return apperr.New(apperr.KindBookingNotCompleted, "can only review completed bookings")
		}

		// Serialize rating recomputation per provider.
		var profile models.ProviderProfile
		if err := db.ForUpdate(tx).First(&profile, "user_id = ?", booking.ProviderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "provider profile not found")
			}
			return err
		}

		var existing models.Review
		err := tx.First(&existing, "booking_id = ?", booking.ID).Error
		if err == nil {
			return apperr.New(apperr.KindDuplicateReview, "booking already has a review")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		review = models.Review{
			BookingID:  booking.ID,
			ServiceID:  booking.ServiceID,
			CustomerID: customerID,
			ProviderID: booking.ProviderID,
			Rating:     in.Rating,
			Comment:    in.Comment,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		rating, err := averageRating(tx, booking.ProviderID)
		if err != nil {
			return err
		}
		return tx.Model(&profile).Update("rating", rating).Error
	})
	if err != nil {
		return nil, err
	}

	a.Notifier.Notify(review.ProviderID, models.NotifyReview,
		"New review", "A customer left a review on your service", &review.BookingID)
	return &review, nil
}

// Respond sets the provider's response. The response is the only field of a
// review that may change after creation.
func (a *Aggregator) Respond(providerID, reviewID uuid.UUID, response string) (*models.Review, error) {
	var review models.Review
	if err := a.DB.First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "review not found")
		}
		return nil, err
	}
	if review.ProviderID != providerID {
		return nil, apperr.New(apperr.KindNotAuthorized, "only the reviewed provider can respond")
	}

	if err := a.DB.Model(&review).Update("provider_response", response).Error; err != nil {
		return nil, err
	}
	review.ProviderResponse = response
	return &review, nil
}

// ForProvider lists a provider's reviews, newest first.
func (a *Aggregator) ForProvider(providerID uuid.UUID) ([]models.Review, error) {
	var list []models.Review
	err := a.DB.
		Preload("Customer").
		Where("provider_id = ?", providerID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func averageRating(tx *gorm.DB, providerID uuid.UUID) (decimal.Decimal, error) {
	var avg float64
	err := tx.Model(&models.Review{}).
		Where("provider_id = ?", providerID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(avg).Round(2), nil
}
