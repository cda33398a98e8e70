package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

const accountPageSize = 100

type TrackingService interface {
	GetByIDPublic(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetByIDSecure answers the same NotFound for a wrong contact and a missing order.
	GetByIDSecure(ctx context.Context, id uuid.UUID, emailOrPhone string) (*models.Order, error)
	ListForUser(ctx context.Context) ([]models.Order, error)
}

type trackingService struct {
	orders repository.OrderRepo
}

func NewTrackingService(orders repository.OrderRepo) TrackingService {
	return &trackingService{orders: orders}
}

func (s *trackingService) GetByIDPublic(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *trackingService) GetByIDSecure(ctx context.Context, id uuid.UUID, emailOrPhone string) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil || !contactMatches(o, emailOrPhone) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *trackingService) ListForUser(ctx context.Context) ([]models.Order, error) {
	uid, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	out := []models.Order{}
	for offset := 0; ; offset += accountPageSize {
		page, total, err := s.orders.List(ctx, repository.OrderListFilter{
			UserID: &uid,
			Limit:  accountPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < accountPageSize || int64(len(out)) >= total {
			return out, nil
		}
	}
}
