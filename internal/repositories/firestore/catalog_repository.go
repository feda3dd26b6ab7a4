package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/marketgate/api/internal/domain"
	pfirestore "github.com/marketgate/api/internal/platform/firestore"
	repositories "github.com/marketgate/api/internal/repositories"
)

const (
	categoryCollection = "categories"
	productCollection  = "products"
)

// CategoryRepository persists the product taxonomy in Firestore.
type CategoryRepository struct {
	base *pfirestore.BaseRepository[categoryDocument]
}

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}
	return &CategoryRepository{
		base: pfirestore.NewBaseRepository[categoryDocument](provider, categoryCollection),
	}, nil
}

// Insert writes a new category; an existing ID yields a conflict.
func (r *CategoryRepository) Insert(ctx context.Context, category domain.Category) error {
	if r == nil || r.base == nil {
		return errors.New("category repository not initialised")
	}
	if strings.TrimSpace(category.ID) == "" {
		return errors.New("category id is required")
	}
	_, err := r.base.Create(ctx, category.ID, fromDomainCategory(category))
	return err
}

// Update replaces the category document.
func (r *CategoryRepository) Update(ctx context.Context, category domain.Category) error {
	if r == nil || r.base == nil {
		return errors.New("category repository not initialised")
	}
	if strings.TrimSpace(category.ID) == "" {
		return errors.New("category id is required")
	}
	_, err := r.base.Set(ctx, category.ID, fromDomainCategory(category))
	return err
}

// FindByID loads the category by ID.
func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	if r == nil || r.base == nil {
		return domain.Category{}, errors.New("category repository not initialised")
	}
	if strings.TrimSpace(categoryID) == "" {
		return domain.Category{}, errors.New("category id is required")
	}

	doc, err := r.base.Get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	return toDomainCategory(doc.ID, doc.Data), nil
}

// List pages through categories, optionally scoped to a parent.
func (r *CategoryRepository) List(ctx context.Context, filter repositories.CategoryListFilter) (domain.CursorPage[domain.Category], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Category]{}, errors.New("category repository not initialised")
	}

	limit, fetch := fetchLimits(filter.Pager.PageSize)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pager.PageToken); token != "" {
		at, id, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Category]{}, pfirestore.ConflictError("categories.list", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ParentID != nil {
			q = q.Where("parentId", "==", strings.TrimSpace(*filter.ParentID))
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetch > 0 {
			q = q.Limit(fetch)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Category]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetch {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainCategory(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Category]{Items: items, NextPageToken: nextToken}, nil
}

// Delete removes the category document.
func (r *CategoryRepository) Delete(ctx context.Context, categoryID string) error {
	if r == nil || r.base == nil {
		return errors.New("category repository not initialised")
	}
	if strings.TrimSpace(categoryID) == "" {
		return errors.New("category id is required")
	}
	return r.base.Delete(ctx, categoryID)
}

// ProductRepository persists store inventory items in Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base: pfirestore.NewBaseRepository[productDocument](provider, productCollection),
	}, nil
}

// Insert writes a new product; an existing ID yields a conflict.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product id is required")
	}
	_, err := r.base.Create(ctx, product.ID, fromDomainProduct(product))
	return err
}

// Update replaces the product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product id is required")
	}
	_, err := r.base.Set(ctx, product.ID, fromDomainProduct(product))
	return err
}

// FindByID loads the product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, errors.New("product id is required")
	}

	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return toDomainProduct(doc.ID, doc.Data), nil
}

// List pages through products with optional store and category scoping.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	limit, fetch := fetchLimits(filter.Pager.PageSize)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pager.PageToken); token != "" {
		at, id, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.ConflictError("products.list", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.StoreID != nil {
			q = q.Where("storeId", "==", strings.TrimSpace(*filter.StoreID))
		}
		if filter.CategoryID != nil {
			q = q.Where("categoryId", "==", strings.TrimSpace(*filter.CategoryID))
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetch > 0 {
			q = q.Limit(fetch)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetch {
		last := docs[len(docs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainProduct(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Product]{Items: items, NextPageToken: nextToken}, nil
}

// Delete removes the product document.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(productID) == "" {
		return errors.New("product id is required")
	}
	return r.base.Delete(ctx, productID)
}

type categoryDocument struct {
	Name      string    `firestore:"name"`
	ParentID  *string   `firestore:"parentId"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func toDomainCategory(id string, doc categoryDocument) domain.Category {
	return domain.Category{
		ID:        id,
		Name:      doc.Name,
		ParentID:  doc.ParentID,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func fromDomainCategory(category domain.Category) categoryDocument {
	return categoryDocument{
		Name:      strings.TrimSpace(category.Name),
		ParentID:  category.ParentID,
		CreatedAt: category.CreatedAt.UTC(),
		UpdatedAt: category.UpdatedAt.UTC(),
	}
}

type productDocument struct {
	StoreID     string    `firestore:"storeId"`
	CategoryID  string    `firestore:"categoryId"`
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Price       int64     `firestore:"price"`
	Stock       int       `firestore:"stock"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func toDomainProduct(id string, doc productDocument) domain.Product {
	return domain.Product{
		ID:          id,
		StoreID:     doc.StoreID,
		CategoryID:  doc.CategoryID,
		Name:        doc.Name,
		Description: doc.Description,
		Price:       doc.Price,
		Stock:       doc.Stock,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func fromDomainProduct(product domain.Product) productDocument {
	return productDocument{
		StoreID:     strings.TrimSpace(product.StoreID),
		CategoryID:  strings.TrimSpace(product.CategoryID),
		Name:        strings.TrimSpace(product.Name),
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		CreatedAt:   product.CreatedAt.UTC(),
		UpdatedAt:   product.UpdatedAt.UTC(),
	}
}
