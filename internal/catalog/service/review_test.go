package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, p pagination.Params) ([]domain.Review, int, error) {
	args := m.Called(ctx, productID, p)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newReviewService(reviews *mockReviewRepository, products *mockProductRepository) *ReviewService {
	return NewReviewService(reviews, products, nil, newTestLogger())
}

func TestCreateReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newReviewService(reviews, products)
	ctx := context.Background()

	productID := uuid.New()
	userID := uuid.New()
	products.On("GetByID", ctx, productID).Return(&domain.Product{ID: productID, IsActive: true}, nil)
	reviews.On("Create", ctx, mock.MatchedBy(func(r *domain.Review) bool {
		return r.ProductID == productID && r.UserID == userID && r.Rating == 4
	})).Return(nil)

	review, err := svc.CreateReview(ctx, &CreateReviewInput{
		ProductID: productID,
		UserID:    userID,
		Rating:    4,
		Comment:   "solid build quality",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, review.ID)
	reviews.AssertExpectations(t)
}

func TestCreateReview_RejectsOutOfRangeRating(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newReviewService(reviews, products)

	for _, rating := range []int{0, 6, -1} {
		review, err := svc.CreateReview(context.Background(), &CreateReviewInput{
			ProductID: uuid.New(),
			UserID:    uuid.New(),
			Rating:    rating,
		})
		assert.Nil(t, review)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
	products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateReview_InactiveProduct(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newReviewService(reviews, products)
	ctx := context.Background()

	productID := uuid.New()
	products.On("GetByID", ctx, productID).Return(&domain.Product{ID: productID, IsActive: false}, nil)

	review, err := svc.CreateReview(ctx, &CreateReviewInput{
		ProductID: productID,
		UserID:    uuid.New(),
		Rating:    5,
	})
	assert.Nil(t, review)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDeleteReview_OwnerAllowed(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newReviewService(reviews, products)
	ctx := context.Background()

	id := uuid.New()
	owner := uuid.New()
	productID := uuid.New()
	reviews.On("GetByID", ctx, id).Return(&domain.Review{ID: id, UserID: owner, ProductID: productID}, nil)
	reviews.On("Delete", ctx, id).Return(nil)
	products.On("GetByID", ctx, productID).Return(&domain.Product{ID: productID}, nil)

	err := svc.DeleteReview(ctx, id, owner, "customer")
	require.NoError(t, err)
	reviews.AssertExpectations(t)
}

func TestDeleteReview_AdminAllowed(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newReviewService(reviews, products)
	ctx := context.Background()

	id := uuid.New()
	productID := uuid.New()
	reviews.On("GetByID", ctx, id).Return(&domain.Review{ID: id, UserID: uuid.New(), ProductID: productID}, nil)
	reviews.On("Delete", ctx, id).Return(nil)
	products.On("GetByID", ctx, productID).Return(&domain.Product{ID: productID}, nil)

	err := svc.DeleteReview(ctx, id, uuid.New(), "admin")
	require.NoError(t, err)
}

func TestDeleteReview_StrangerForbidden(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newReviewService(reviews, products)
	ctx := context.Background()

	id := uuid.New()
	reviews.On("GetByID", ctx, id).Return(&domain.Review{ID: id, UserID: uuid.New()}, nil)

	err := svc.DeleteReview(ctx, id, uuid.New(), "customer")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	reviews.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestListReviews_Normalizes(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newReviewService(reviews, products)
	ctx := context.Background()

	productID := uuid.New()
	reviews.On("ListByProduct", ctx, productID, pagination.Params{Page: 1, Limit: 20}).
		Return([]domain.Review{{ID: uuid.New(), ProductID: productID, Rating: 5}}, 1, nil)

	result, err := svc.ListReviews(ctx, productID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.Pagination.Total)
}
