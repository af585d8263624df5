package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mlimwengu/CourseHubGo/internal/cache"
	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
	"github.com/mlimwengu/CourseHubGo/pkg/slug"
)

// CatalogService implements the business logic for course and product
// aggregates.
type CatalogService struct {
	store       repository.DocumentStore
	invalidator *cache.Invalidator
	logger      *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store repository.DocumentStore, invalidator *cache.Invalidator, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:       store,
		invalidator: invalidator,
		logger:      logger,
	}
}

// CreateCourseInput holds the parameters for creating a course.
type CreateCourseInput struct {
	InstructorID string   `json:"instructor_id" validate:"required"`
	Title        string   `json:"title" validate:"required,min=3,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	PriceAmount  int64    `json:"price_amount" validate:"gte=0"`
	Currency     string   `json:"currency" validate:"required,len=3"`
	LessonIDs    []string `json:"lesson_ids"`
}

// CreateCourse creates a new course aggregate.
func (s *CatalogService) CreateCourse(ctx context.Context, input CreateCourseInput) (*domain.Course, error) {
	now := time.Now().UTC()
	course := &domain.Course{
		ID:           uuid.New().String(),
		InstructorID: input.InstructorID,
		Title:        input.Title,
		Slug:         slug.Generate(input.Title),
		Description:  input.Description,
		PriceAmount:  input.PriceAmount,
		Currency:     input.Currency,
		LessonIDs:    input.LessonIDs,
		Ratings:      domain.Ratings{Reviews: []domain.Review{}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	data, err := json.Marshal(course)
	if err != nil {
		return nil, fmt.Errorf("marshal course: %w", err)
	}

	if err := s.store.Insert(ctx, repository.CollectionCourses, course.ID, data); err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, cache.CourseViewKeys(course.ID, course.Slug)...)

	s.logger.InfoContext(ctx, "course created",
		slog.String("course_id", course.ID),
		slog.String("instructor_id", course.InstructorID),
		slog.String("slug", course.Slug),
	)

	return course, nil
}

// GetCourse retrieves a course by ID.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("course id is required")
	}

	doc, err := s.store.Get(ctx, repository.CollectionCourses, id)
	if err != nil {
		return nil, err
	}

	var course domain.Course
	if err := json.Unmarshal(doc.Data, &course); err != nil {
		return nil, fmt.Errorf("unmarshal course: %w", err)
	}

	return &course, nil
}

// ListCourses returns courses ordered by last update, newest first.
func (s *CatalogService) ListCourses(ctx context.Context, page, perPage int) ([]domain.Course, int, error) {
	docs, total, err := s.store.List(ctx, repository.CollectionCourses, page, perPage)
	if err != nil {
		return nil, 0, err
	}

	courses := make([]domain.Course, 0, len(docs))
	for _, doc := range docs {
		var course domain.Course
		if err := json.Unmarshal(doc.Data, &course); err != nil {
			return nil, 0, fmt.Errorf("unmarshal course %s: %w", doc.ID, err)
		}
		courses = append(courses, course)
	}

	return courses, total, nil
}

// CreateProductInput holds the parameters for creating a storefront product.
type CreateProductInput struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=5000"`
	PriceAmount int64  `json:"price_amount" validate:"gte=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

// CreateProduct creates a new product aggregate.
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Slug:        slug.Generate(input.Title),
		Description: input.Description,
		PriceAmount: input.PriceAmount,
		Currency:    input.Currency,
		Stock:       input.Stock,
		Ratings:     domain.Ratings{Reviews: []domain.Review{}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := json.Marshal(product)
	if err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}

	if err := s.store.Insert(ctx, repository.CollectionProducts, product.ID, data); err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, cache.ProductViewKeys(product.ID, product.Slug)...)

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// GetProduct retrieves a product by ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	doc, err := s.store.Get(ctx, repository.CollectionProducts, id)
	if err != nil {
		return nil, err
	}

	var product domain.Product
	if err := json.Unmarshal(doc.Data, &product); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}

	return &product, nil
}

// CreateUserInput holds the parameters for creating a user aggregate.
type CreateUserInput struct {
	DisplayName   string `json:"display_name" validate:"required,min=2,max=100"`
	Email         string `json:"email" validate:"omitempty,email"`
	PointsBalance int64  `json:"points_balance" validate:"gte=0"`
}

// CreateUser creates a new user aggregate with an optional starting balance.
func (s *CatalogService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New().String(),
		DisplayName:   input.DisplayName,
		Email:         input.Email,
		PointsBalance: input.PointsBalance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}

	if err := s.store.Insert(ctx, repository.CollectionUsers, user.ID, data); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *CatalogService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	doc, err := s.store.Get(ctx, repository.CollectionUsers, id)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(doc.Data, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}

	return &user, nil
}
