package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo mirrors the repository semantics in memory so service tests
// can exercise full operation flows without Postgres.
type fakeRepo struct {
	products map[int64]Product
	brands   map[int64]string
	accounts map[int64]string
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products: map[int64]Product{},
		brands:   map[int64]string{},
		accounts: map[int64]string{},
	}
}

func (f *fakeRepo) addBrand(id int64, name string)   { f.brands[id] = name }
func (f *fakeRepo) addAccount(id int64, name string) { f.accounts[id] = name }

func (f *fakeRepo) matches(p Product, filter *ProductFilter) bool {
	if p.Status < 0 {
		return false
	}
	if filter == nil {
		return true
	}
	if filter.BrandName != "" {
		brand := strings.ToLower(f.brands[p.BrandID])
		if !strings.Contains(brand, strings.ToLower(filter.BrandName)) {
			return false
		}
	}
	priceFrom, priceTo := normalizeRange(filter.PriceFrom, filter.PriceTo)
	if priceFrom > 0 && p.PriceVnd < priceFrom {
		return false
	}
	if priceTo > 0 && p.PriceVnd > priceTo {
		return false
	}
	if priceFrom <= 0 && priceTo <= 0 && filter.Price > 0 && p.PriceVnd > filter.Price {
		return false
	}
	stockFrom, stockTo := normalizeRange(filter.StockFrom, filter.StockTo)
	if stockFrom > 0 && p.Stock < stockFrom {
		return false
	}
	if stockTo > 0 && p.Stock > stockTo {
		return false
	}
	if stockFrom <= 0 && stockTo <= 0 && filter.Stock > 0 && p.Stock != filter.Stock {
		return false
	}
	if filter.Status != nil && (*filter.Status == StatusInactive || *filter.Status == StatusActive) && p.Status != *filter.Status {
		return false
	}
	if keyword := FoldSearchText(filter.Keyword); keyword != "" {
		if !strings.Contains(p.SearchKeyword, keyword) {
			return false
		}
	}
	return true
}

func (f *fakeRepo) view(p Product) ProductView {
	return ProductView{
		ID: p.ID, Code: p.Code, Name: p.Name, BrandName: f.brands[p.BrandID],
		PriceVnd: p.PriceVnd, Stock: p.Stock, Status: p.Status, Description: p.Description,
		ImageURL: p.ImageURL, CreatedBy: f.accounts[p.CreatedBy], UpdatedBy: f.accounts[p.UpdatedBy],
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func (f *fakeRepo) sorted(filter *ProductFilter) []Product {
	var matched []Product
	for _, p := range f.products {
		if f.matches(p, filter) {
			matched = append(matched, p)
		}
	}
	byPrice := filter.HasPriceSignal()
	sort.Slice(matched, func(i, j int) bool {
		if byPrice && matched[i].PriceVnd != matched[j].PriceVnd {
			return matched[i].PriceVnd > matched[j].PriceVnd
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

func (f *fakeRepo) ListPaged(_ context.Context, filter *ProductFilter, page, pageSize int) ([]ProductView, int, error) {
	matched := f.sorted(filter)
	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	var views []ProductView
	for _, p := range matched[start:end] {
		views = append(views, f.view(p))
	}
	return views, total, nil
}

func (f *fakeRepo) ListAll(_ context.Context, filter *ProductFilter) ([]ProductView, error) {
	var views []ProductView
	for _, p := range f.sorted(filter) {
		views = append(views, f.view(p))
	}
	return views, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (ProductView, error) {
	p, ok := f.products[id]
	if !ok || p.Status < 0 {
		return ProductView{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return f.view(p), nil
}

func (f *fakeRepo) GetRow(_ context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok || p.Status < 0 {
		return Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return p, nil
}

func (f *fakeRepo) HasDuplicate(_ context.Context, code, name string, excludeID int64) (bool, error) {
	for _, p := range f.products {
		if p.Status < 0 || p.ID == excludeID {
			continue
		}
		if strings.EqualFold(p.Code, code) || strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) FindBrandIDByName(_ context.Context, name string) (int64, error) {
	for id, brand := range f.brands {
		if strings.EqualFold(brand, name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: brand %q", ErrNotFound, name)
}

func (f *fakeRepo) AccountExists(_ context.Context, id int64) (bool, error) {
	_, ok := f.accounts[id]
	return ok, nil
}

func (f *fakeRepo) AnyAccountID(_ context.Context) (int64, error) {
	best := int64(0)
	for id := range f.accounts {
		if best == 0 || id < best {
			best = id
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("%w: no accounts exist", ErrNotFound)
	}
	return best, nil
}

func (f *fakeRepo) Insert(_ context.Context, product Product) (int64, error) {
	f.nextID++
	product.ID = f.nextID
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	f.products[product.ID] = product
	return product.ID, nil
}

func (f *fakeRepo) Update(_ context.Context, product Product) error {
	existing, ok := f.products[product.ID]
	if !ok {
		return fmt.Errorf("%w: product %d", ErrNotFound, product.ID)
	}
	product.CreatedBy = existing.CreatedBy
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	f.products[product.ID] = product
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id int64) (bool, error) {
	p, ok := f.products[id]
	if !ok {
		return false, nil
	}
	p.Status = StatusDeleted
	p.UpdatedAt = time.Now()
	f.products[id] = p
	return true, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, nil, nil)
}

func seedService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	repo.addBrand(1, "Acme")
	repo.addBrand(2, "Dove")
	repo.addAccount(10, "admin")
	repo.addAccount(11, "staff")
	return newTestService(repo), repo
}

func mustCreate(t *testing.T, svc *Service, input CreateProductInput) {
	t.Helper()
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
}

func TestCreateReturnsNameAndDefaultsActive(t *testing.T) {
	svc, repo := seedService(t)

	name, err := svc.Create(context.Background(), CreateProductInput{
		Code: "  P1  ", Name: " Widget ", BrandName: " Acme ", PriceVnd: 100, Stock: 5,
		Description: " d ", ActorID: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget", name)

	p := repo.products[1]
	assert.Equal(t, "P1", p.Code)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, int64(1), p.BrandID)
	assert.Equal(t, int64(10), p.CreatedBy)
	assert.Equal(t, "p1 widget acme d", p.SearchKeyword)
}

func TestCreateExplicitInactiveStatus(t *testing.T) {
	svc, repo := seedService(t)

	inactive := StatusInactive
	mustCreate(t, svc, CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Description: "d", Status: &inactive, ActorID: 10,
	})
	assert.Equal(t, StatusInactive, repo.products[1].Status)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := seedService(t)
	ctx := context.Background()

	cases := []CreateProductInput{
		{Code: "  ", Name: "Widget", BrandName: "Acme", Description: "d"},
		{Code: "P1", Name: "", BrandName: "Acme", Description: "d"},
		{Code: "P1", Name: "Widget", BrandName: " ", Description: "d"},
		{Code: "P1", Name: "Widget", BrandName: "Acme", Description: "   "},
		{Code: "P1", Name: "Widget", BrandName: "Acme", Description: "d", PriceVnd: -1},
		{Code: "P1", Name: "Widget", BrandName: "Acme", Description: "d", Stock: -1},
	}
	for i, input := range cases {
		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, ErrValidation, "case %d", i)
	}
}

func TestCreateGuardsFreeText(t *testing.T) {
	svc, _ := seedService(t)
	_, err := svc.Create(context.Background(), CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Acme",
		Description: "DROP TABLE products", PriceVnd: 1, Stock: 1,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateDuplicateIsCaseInsensitive(t *testing.T) {
	svc, _ := seedService(t)
	mustCreate(t, svc, CreateProductInput{Code: "A", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d"})

	_, err := svc.Create(context.Background(), CreateProductInput{Code: "a", Name: "Other", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d"})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.Create(context.Background(), CreateProductInput{Code: "B", Name: "WIDGET", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateUnknownBrand(t *testing.T) {
	svc, _ := seedService(t)
	_, err := svc.Create(context.Background(), CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Unknown", PriceVnd: 1, Stock: 1, Description: "d",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateActorFallback(t *testing.T) {
	svc, repo := seedService(t)
	mustCreate(t, svc, CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Description: "d", ActorID: 999,
	})
	assert.Equal(t, int64(10), repo.products[1].CreatedBy)
}

func TestCreateFailsWithNoAccounts(t *testing.T) {
	repo := newFakeRepo()
	repo.addBrand(1, "Acme")
	svc := newTestService(repo)
	_, err := svc.Create(context.Background(), CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEditPreservesImageWhenBlank(t *testing.T) {
	svc, repo := seedService(t)
	mustCreate(t, svc, CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Description: "d", ImageURL: "/media/p1.jpg", ActorID: 10,
	})

	err := svc.Edit(context.Background(), EditProductInput{
		ID: 1, Code: "P1", Name: "Widget v2", BrandName: "Acme", PriceVnd: 2, Stock: 3,
		Status: StatusActive, Description: "d2", ImageURL: "   ", ActorID: 11,
	})
	require.NoError(t, err)

	p := repo.products[1]
	assert.Equal(t, "/media/p1.jpg", p.ImageURL)
	assert.Equal(t, "Widget v2", p.Name)
	assert.Equal(t, int64(11), p.UpdatedBy)
}

func TestEditReplacesImageWhenSupplied(t *testing.T) {
	svc, repo := seedService(t)
	mustCreate(t, svc, CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Description: "d", ImageURL: "/media/old.jpg", ActorID: 10,
	})

	err := svc.Edit(context.Background(), EditProductInput{
		ID: 1, Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Status: StatusActive, Description: "d", ImageURL: "/media/new.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "/media/new.jpg", repo.products[1].ImageURL)
}

func TestEditKeepsUpdatedByForInvalidActor(t *testing.T) {
	svc, repo := seedService(t)
	mustCreate(t, svc, CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Description: "d", ActorID: 10,
	})

	err := svc.Edit(context.Background(), EditProductInput{
		ID: 1, Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Status: StatusActive, Description: "d", ActorID: 999,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), repo.products[1].UpdatedBy)
}

func TestEditStatusIsAppliedVerbatim(t *testing.T) {
	svc, repo := seedService(t)
	mustCreate(t, svc, CreateProductInput{
		Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d",
	})

	err := svc.Edit(context.Background(), EditProductInput{
		ID: 1, Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Status: StatusInactive, Description: "d",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, repo.products[1].Status)
}

func TestEditDuplicateExcludesSelf(t *testing.T) {
	svc, _ := seedService(t)
	mustCreate(t, svc, CreateProductInput{Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d"})
	mustCreate(t, svc, CreateProductInput{Code: "P2", Name: "Gadget", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d"})

	// Keeping its own code/name is fine.
	err := svc.Edit(context.Background(), EditProductInput{
		ID: 1, Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 9, Stock: 9,
		Status: StatusActive, Description: "d",
	})
	require.NoError(t, err)

	// Taking another product's name is not.
	err = svc.Edit(context.Background(), EditProductInput{
		ID: 1, Code: "P1", Name: "gadget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Status: StatusActive, Description: "d",
	})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestEditMissingProduct(t *testing.T) {
	svc, _ := seedService(t)
	err := svc.Edit(context.Background(), EditProductInput{
		ID: 42, Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1,
		Status: StatusActive, Description: "d",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSoftAndIdempotent(t *testing.T) {
	svc, repo := seedService(t)
	mustCreate(t, svc, CreateProductInput{Code: "P1", Name: "Widget", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d"})
	ctx := context.Background()

	ok, err := svc.Delete(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	// Row stays in storage with deleted status but is gone from reads.
	assert.Equal(t, StatusDeleted, repo.products[1].Status)
	_, err = svc.Get(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)

	ok, err = svc.Delete(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Delete(ctx, 42, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBulkDeleteDeduplicatesAndCounts(t *testing.T) {
	svc, _ := seedService(t)
	mustCreate(t, svc, CreateProductInput{Code: "P1", Name: "A", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d"})
	mustCreate(t, svc, CreateProductInput{Code: "P2", Name: "B", BrandName: "Acme", PriceVnd: 1, Stock: 1, Description: "d"})

	count, err := svc.BulkDelete(context.Background(), []int64{1, 1, 2, 99}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestListNewestFirstAndPaged(t *testing.T) {
	svc, _ := seedService(t)
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		mustCreate(t, svc, CreateProductInput{
			Code: fmt.Sprintf("P%d", i), Name: fmt.Sprintf("Product %d", i),
			BrandName: "Acme", PriceVnd: float64(i), Stock: i, Description: "d",
		})
	}

	page, err := svc.List(ctx, 1, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 5)
	assert.Equal(t, int64(7), page.Items[0].ID)

	// Page/pageSize clamp to 1 and the default size.
	page, err = svc.List(ctx, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 5, page.PageSize)
}

func TestListPagesCoverListAllWithoutGaps(t *testing.T) {
	svc, _ := seedService(t)
	ctx := context.Background()
	for i := 1; i <= 9; i++ {
		mustCreate(t, svc, CreateProductInput{
			Code: fmt.Sprintf("P%d", i), Name: fmt.Sprintf("Product %d", i),
			BrandName: "Acme", PriceVnd: float64(i % 3), Stock: i, Description: "d",
		})
	}
	filter := &ProductFilter{PriceFrom: 1}

	all, err := svc.ListAll(ctx, filter)
	require.NoError(t, err)

	var combined []ProductView
	for p := 1; ; p++ {
		page, err := svc.List(ctx, p, 4, filter)
		require.NoError(t, err)
		combined = append(combined, page.Items...)
		if p >= page.TotalPages {
			assert.Equal(t, page.TotalItems, len(all))
			break
		}
	}
	assert.Equal(t, all, combined)

	// Price signal present: non-increasing price, then non-increasing id.
	for i := 1; i < len(all); i++ {
		if all[i-1].PriceVnd == all[i].PriceVnd {
			assert.Greater(t, all[i-1].ID, all[i].ID)
		} else {
			assert.Greater(t, all[i-1].PriceVnd, all[i].PriceVnd)
		}
	}
}

func TestListRejectsDenylistedFilter(t *testing.T) {
	svc, _ := seedService(t)
	_, err := svc.List(context.Background(), 1, 5, &ProductFilter{Keyword: "DROP TABLE x"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestListKeywordIsAccentInsensitive(t *testing.T) {
	svc, _ := seedService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateProductInput{
		Code: "SP01", Name: "Nước giặt", BrandName: "Dove", PriceVnd: 1, Stock: 1, Description: "đậm đặc",
	})

	for _, keyword := range []string{"nuoc giat", "Nước Giặt", "dam dac"} {
		page, err := svc.List(ctx, 1, 5, &ProductFilter{Keyword: keyword})
		require.NoError(t, err)
		require.Len(t, page.Items, 1, "keyword %q", keyword)
		assert.Equal(t, "Nước giặt", page.Items[0].Name)
	}
}
