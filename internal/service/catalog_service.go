package service

import (
	"context"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

type ProductQuery struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

type CatalogService interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// GetProductByRef accepts either the product id or its slug.
	GetProductByRef(ctx context.Context, ref string) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, int64, error)
}

type catalogService struct {
	products repository.ProductRepo
}

func NewCatalogService(products repository.ProductRepo) CatalogService {
	return &catalogService{products: products}
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *catalogService) GetProductByRef(ctx context.Context, ref string) (*models.Product, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.GetProduct(ctx, id)
	}
	p, err := s.products.GetBySlug(ctx, ref)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *catalogService) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	list, err := s.products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Product, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	limit, offset := pageToLimitOffset(q.Page, q.Limit)
	return s.products.List(ctx, repository.ProductListFilter{
		Query:      q.Search,
		Category:   q.Category,
		OnlyActive: true,
		Limit:      limit,
		Offset:     offset,
	})
}

const maxPageSize = 100

func pageToLimitOffset(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
