package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/repositories"
)

const (
	categoryIDPrefix = "cat_"
	productIDPrefix  = "prod_"
)

var (
	// ErrCatalogInvalidInput indicates validation failures for catalog operations.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates a category or product could not be located.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogConflict signals duplicate entries or conflicting updates.
	ErrCatalogConflict = errors.New("catalog: conflict")
	// ErrCatalogUnauthorized indicates the actor does not own the product's store.
	ErrCatalogUnauthorized = errors.New("catalog: unauthorized")
)

// CatalogServiceDeps bundles collaborators required to construct a CatalogService.
type CatalogServiceDeps struct {
	Categories  repositories.CategoryRepository
	Products    repositories.ProductRepository
	Stores      repositories.StoreRepository
	Clock       func() time.Time
	CategoryIDs func() string
	ProductIDs  func() string
}

type catalogService struct {
	categories repositories.CategoryRepository
	products   repositories.ProductRepository
	stores     repositories.StoreRepository
	clock      func() time.Time
	categoryID func() string
	productID  func() string
}

// NewCatalogService wires dependencies into a concrete CatalogService implementation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Categories == nil {
		return nil, errors.New("catalog service: category repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	if deps.Stores == nil {
		return nil, errors.New("catalog service: store repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	categoryID := deps.CategoryIDs
	if categoryID == nil {
		categoryID = func() string { return categoryIDPrefix + ulid.Make().String() }
	}
	productID := deps.ProductIDs
	if productID == nil {
		productID = func() string { return productIDPrefix + ulid.Make().String() }
	}
	return &catalogService{
		categories: deps.Categories,
		products:   deps.Products,
		stores:     deps.Stores,
		clock:      func() time.Time { return clock().UTC() },
		categoryID: categoryID,
		productID:  productID,
	}, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, cmd CreateCategoryCommand) (Category, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return Category{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if cmd.ParentID != nil {
		if _, err := s.categories.FindByID(ctx, *cmd.ParentID); err != nil {
			if isNotFound(err) {
				return Category{}, fmt.Errorf("%w: parent category not found", ErrCatalogInvalidInput)
			}
			return Category{}, err
		}
	}

	category, err := domain.NewCategory(s.categoryID(), cmd.Name, cmd.ParentID, s.clock())
	if err != nil {
		return Category{}, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, err)
	}
	if err := s.categories.Insert(ctx, category); err != nil {
		return Category{}, s.mapCatalogError(err)
	}
	return category, nil
}

func (s *catalogService) GetCategory(ctx context.Context, categoryID string) (Category, error) {
	if strings.TrimSpace(categoryID) == "" {
		return Category{}, fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return Category{}, s.mapCatalogError(err)
	}
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context, cmd ListCategoriesCommand) (domain.CursorPage[Category], error) {
	page, err := s.categories.List(ctx, repositories.CategoryListFilter{
		ParentID: cmd.ParentID,
		Pager:    cmd.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Category]{}, s.mapCatalogError(err)
	}
	return page, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, cmd UpdateCategoryCommand) (Category, error) {
	if strings.TrimSpace(cmd.CategoryID) == "" {
		return Category{}, fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}

	category, err := s.categories.FindByID(ctx, cmd.CategoryID)
	if err != nil {
		return Category{}, s.mapCatalogError(err)
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return Category{}, fmt.Errorf("%w: name must not be empty", ErrCatalogInvalidInput)
		}
		category.Name = name
	}
	if cmd.ParentID != nil {
		parent := *cmd.ParentID
		if parent != nil {
			if strings.TrimSpace(*parent) == cmd.CategoryID {
				return Category{}, fmt.Errorf("%w: category cannot be its own parent", ErrCatalogInvalidInput)
			}
			if _, err := s.categories.FindByID(ctx, *parent); err != nil {
				if isNotFound(err) {
					return Category{}, fmt.Errorf("%w: parent category not found", ErrCatalogInvalidInput)
				}
				return Category{}, err
			}
		}
		category.ParentID = parent
	}
	category.UpdatedAt = s.clock()

	if err := s.categories.Update(ctx, category); err != nil {
		return Category{}, s.mapCatalogError(err)
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	if strings.TrimSpace(categoryID) == "" {
		return fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}

	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return s.mapCatalogError(err)
	}

	// Refuse to orphan listings still filed under the category.
	page, err := s.products.List(ctx, repositories.ProductListFilter{
		CategoryID: &categoryID,
		Pager:      domain.Pagination{PageSize: 1},
	})
	if err != nil {
		return s.mapCatalogError(err)
	}
	if len(page.Items) > 0 {
		return fmt.Errorf("%w: category still has products", ErrCatalogConflict)
	}

	if err := s.categories.Delete(ctx, categoryID); err != nil {
		return s.mapCatalogError(err)
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	if strings.TrimSpace(cmd.StoreID) == "" {
		return Product{}, fmt.Errorf("%w: store id is required", ErrCatalogInvalidInput)
	}
	if strings.TrimSpace(cmd.CategoryID) == "" {
		return Product{}, fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}

	store, err := s.stores.FindByID(ctx, cmd.StoreID)
	if err != nil {
		if isNotFound(err) {
			return Product{}, fmt.Errorf("%w: store not found", ErrCatalogInvalidInput)
		}
		return Product{}, err
	}
	if !cmd.AllowStaff && store.OwnerID != cmd.ActorID {
		return Product{}, ErrCatalogUnauthorized
	}

	if _, err := s.categories.FindByID(ctx, cmd.CategoryID); err != nil {
		if isNotFound(err) {
			return Product{}, fmt.Errorf("%w: category not found", ErrCatalogInvalidInput)
		}
		return Product{}, err
	}

	product, err := domain.NewProduct(s.productID(), cmd.StoreID, cmd.CategoryID, cmd.Name, cmd.Description, cmd.Price, cmd.Stock, s.clock())
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, err)
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, s.mapCatalogError(err)
	}
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if strings.TrimSpace(productID) == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.mapCatalogError(err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, cmd ListProductsCommand) (domain.CursorPage[Product], error) {
	page, err := s.products.List(ctx, repositories.ProductListFilter{
		StoreID:    cmd.StoreID,
		CategoryID: cmd.CategoryID,
		Pager:      cmd.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Product]{}, s.mapCatalogError(err)
	}
	return page, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	if strings.TrimSpace(cmd.ProductID) == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.products.FindByID(ctx, cmd.ProductID)
	if err != nil {
		return Product{}, s.mapCatalogError(err)
	}
	if err := s.authoriseProductActor(ctx, product, cmd.ActorID, cmd.AllowStaff); err != nil {
		return Product{}, err
	}

	if cmd.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *cmd.CategoryID); err != nil {
			if isNotFound(err) {
				return Product{}, fmt.Errorf("%w: category not found", ErrCatalogInvalidInput)
			}
			return Product{}, err
		}
		product.CategoryID = *cmd.CategoryID
	}
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return Product{}, fmt.Errorf("%w: name must not be empty", ErrCatalogInvalidInput)
		}
		product.Name = name
	}
	if cmd.Description != nil {
		product.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Price != nil {
		if *cmd.Price < 0 {
			return Product{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
		}
		product.Price = *cmd.Price
	}
	if cmd.Stock != nil {
		if *cmd.Stock < 0 {
			return Product{}, fmt.Errorf("%w: stock must not be negative", ErrCatalogInvalidInput)
		}
		product.Stock = *cmd.Stock
	}
	product.UpdatedAt = s.clock()

	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, s.mapCatalogError(err)
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, cmd DeleteProductCommand) error {
	if strings.TrimSpace(cmd.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.products.FindByID(ctx, cmd.ProductID)
	if err != nil {
		return s.mapCatalogError(err)
	}
	if err := s.authoriseProductActor(ctx, product, cmd.ActorID, cmd.AllowStaff); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, cmd.ProductID); err != nil {
		return s.mapCatalogError(err)
	}
	return nil
}

func (s *catalogService) authoriseProductActor(ctx context.Context, product Product, actorID string, allowStaff bool) error {
	if allowStaff {
		return nil
	}
	store, err := s.stores.FindByID(ctx, product.StoreID)
	if err != nil {
		return s.mapCatalogError(err)
	}
	if store.OwnerID != actorID {
		return ErrCatalogUnauthorized
	}
	return nil
}

func (s *catalogService) mapCatalogError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFound(err):
		return ErrCatalogNotFound
	case isConflict(err):
		return fmt.Errorf("%w: %v", ErrCatalogConflict, err)
	}
	return err
}
