package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/marketgate/api/internal/domain"
	"github.com/marketgate/api/internal/repositories"
)

type stubCategoryRepo struct {
	categories  map[string]domain.Category
	insertCalls int
	deleteCalls int
}

func newStubCategoryRepo(seed ...domain.Category) *stubCategoryRepo {
	repo := &stubCategoryRepo{categories: map[string]domain.Category{}}
	for _, category := range seed {
		repo.categories[category.ID] = category
	}
	return repo
}

func (r *stubCategoryRepo) Insert(ctx context.Context, category domain.Category) error {
	r.insertCalls++
	if _, ok := r.categories[category.ID]; ok {
		return &stubRepoError{conflict: true}
	}
	r.categories[category.ID] = category
	return nil
}

func (r *stubCategoryRepo) Update(ctx context.Context, category domain.Category) error {
	r.categories[category.ID] = category
	return nil
}

func (r *stubCategoryRepo) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	category, ok := r.categories[categoryID]
	if !ok {
		return domain.Category{}, &stubRepoError{notFound: true}
	}
	return category, nil
}

func (r *stubCategoryRepo) List(ctx context.Context, filter repositories.CategoryListFilter) (domain.CursorPage[domain.Category], error) {
	var items []domain.Category
	for _, category := range r.categories {
		items = append(items, category)
	}
	return domain.CursorPage[domain.Category]{Items: items}, nil
}

func (r *stubCategoryRepo) Delete(ctx context.Context, categoryID string) error {
	r.deleteCalls++
	if _, ok := r.categories[categoryID]; !ok {
		return &stubRepoError{notFound: true}
	}
	delete(r.categories, categoryID)
	return nil
}

type stubProductRepo struct {
	products    map[string]domain.Product
	insertCalls int
}

func newStubProductRepo(seed ...domain.Product) *stubProductRepo {
	repo := &stubProductRepo{products: map[string]domain.Product{}}
	for _, product := range seed {
		repo.products[product.ID] = product
	}
	return repo
}

func (r *stubProductRepo) Insert(ctx context.Context, product domain.Product) error {
	r.insertCalls++
	if _, ok := r.products[product.ID]; ok {
		return &stubRepoError{conflict: true}
	}
	r.products[product.ID] = product
	return nil
}

func (r *stubProductRepo) Update(ctx context.Context, product domain.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, &stubRepoError{notFound: true}
	}
	return product, nil
}

func (r *stubProductRepo) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	var items []domain.Product
	for _, product := range r.products {
		if filter.StoreID != nil && product.StoreID != *filter.StoreID {
			continue
		}
		if filter.CategoryID != nil && product.CategoryID != *filter.CategoryID {
			continue
		}
		items = append(items, product)
	}
	return domain.CursorPage[domain.Product]{Items: items}, nil
}

func (r *stubProductRepo) Delete(ctx context.Context, productID string) error {
	if _, ok := r.products[productID]; !ok {
		return &stubRepoError{notFound: true}
	}
	delete(r.products, productID)
	return nil
}

func newTestCatalogService(t *testing.T, categories *stubCategoryRepo, products *stubProductRepo, stores *stubStoreRepo) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{
		Categories:  categories,
		Products:    products,
		Stores:      stores,
		Clock:       fixedClock(),
		CategoryIDs: func() string { return "cat_test" },
		ProductIDs:  func() string { return "prod_test" },
	})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}
	return svc
}

func TestCreateCategoryRejectsMissingParent(t *testing.T) {
	categories := newStubCategoryRepo()
	svc := newTestCatalogService(t, categories, newStubProductRepo(), newStubStoreRepo())

	parent := "cat_missing"
	_, err := svc.CreateCategory(context.Background(), CreateCategoryCommand{Name: "Tools", ParentID: &parent})
	if !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if categories.insertCalls != 0 {
		t.Fatalf("category must not be created with a missing parent")
	}
}

func TestCreateCategoryTopLevel(t *testing.T) {
	categories := newStubCategoryRepo()
	svc := newTestCatalogService(t, categories, newStubProductRepo(), newStubStoreRepo())

	category, err := svc.CreateCategory(context.Background(), CreateCategoryCommand{Name: "Tools"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if category.ParentID != nil {
		t.Fatalf("expected nil parent for top-level category")
	}
}

func TestUpdateCategoryRejectsSelfParent(t *testing.T) {
	categories := newStubCategoryRepo(domain.Category{ID: "cat_1", Name: "Tools"})
	svc := newTestCatalogService(t, categories, newStubProductRepo(), newStubStoreRepo())

	self := "cat_1"
	parent := &self
	_, err := svc.UpdateCategory(context.Background(), UpdateCategoryCommand{
		CategoryID: "cat_1",
		ParentID:   &parent,
	})
	if !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input for self parent, got %v", err)
	}
}

func TestDeleteCategoryWithProductsConflicts(t *testing.T) {
	categories := newStubCategoryRepo(domain.Category{ID: "cat_1", Name: "Tools"})
	products := newStubProductRepo(domain.Product{ID: "prod_1", StoreID: "store_1", CategoryID: "cat_1", Name: "Hammer"})
	svc := newTestCatalogService(t, categories, products, newStubStoreRepo())

	err := svc.DeleteCategory(context.Background(), "cat_1")
	if !errors.Is(err, ErrCatalogConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if categories.deleteCalls != 0 {
		t.Fatalf("category with products must not be deleted")
	}
}

func TestCreateProductChecksOwnershipAndCategory(t *testing.T) {
	categories := newStubCategoryRepo(domain.Category{ID: "cat_1", Name: "Tools"})
	products := newStubProductRepo()
	stores := newStubStoreRepo(domain.Store{ID: "store_1", OwnerID: "user_1", Name: "Acme", Status: domain.StoreStatusActive})
	svc := newTestCatalogService(t, categories, products, stores)

	_, err := svc.CreateProduct(context.Background(), CreateProductCommand{
		StoreID:    "store_1",
		CategoryID: "cat_1",
		Name:       "Hammer",
		Price:      1999,
		Stock:      10,
		ActorID:    "user_2",
	})
	if !errors.Is(err, ErrCatalogUnauthorized) {
		t.Fatalf("expected unauthorized for non-owner, got %v", err)
	}

	_, err = svc.CreateProduct(context.Background(), CreateProductCommand{
		StoreID:    "store_1",
		CategoryID: "cat_missing",
		Name:       "Hammer",
		Price:      1999,
		Stock:      10,
		ActorID:    "user_1",
	})
	if !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input for missing category, got %v", err)
	}

	product, err := svc.CreateProduct(context.Background(), CreateProductCommand{
		StoreID:    "store_1",
		CategoryID: "cat_1",
		Name:       "Hammer",
		Price:      1999,
		Stock:      10,
		ActorID:    "user_1",
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.StoreID != "store_1" || product.CategoryID != "cat_1" {
		t.Fatalf("unexpected product references: %+v", product)
	}
	if products.insertCalls != 1 {
		t.Fatalf("expected one insert, got %d", products.insertCalls)
	}
}

func TestUpdateProductValidatesBounds(t *testing.T) {
	categories := newStubCategoryRepo(domain.Category{ID: "cat_1", Name: "Tools"})
	products := newStubProductRepo(domain.Product{ID: "prod_1", StoreID: "store_1", CategoryID: "cat_1", Name: "Hammer", Price: 1999, Stock: 5})
	stores := newStubStoreRepo(domain.Store{ID: "store_1", OwnerID: "user_1", Name: "Acme"})
	svc := newTestCatalogService(t, categories, products, stores)

	negative := int64(-1)
	_, err := svc.UpdateProduct(context.Background(), UpdateProductCommand{
		ProductID: "prod_1",
		ActorID:   "user_1",
		Price:     &negative,
	})
	if !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input for negative price, got %v", err)
	}
}
