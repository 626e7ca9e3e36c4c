package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mercato-admin/mercato-admin/internal/platform/httpx"
	"github.com/mercato-admin/mercato-admin/internal/shared"
	"github.com/mercato-admin/mercato-admin/internal/view"
)

// BrandDirectory supplies brand choices for forms and filters.
type BrandDirectory interface {
	ListBrands(ctx context.Context) ([]Brand, error)
}

// DocumentRenderer turns a product into a downloadable PDF.
type DocumentRenderer interface {
	RenderProductPDF(ctx context.Context, product ProductView) ([]byte, error)
}

// Handler serves the product administration pages and JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	brands    BrandDirectory
	renderer  DocumentRenderer
	templates *view.Engine
	csrf      *shared.CSRFManager
	validate  *validator.Validate
}

// NewHandler builds the catalog handler. renderer may be nil when PDF
// generation is not configured.
func NewHandler(logger *slog.Logger, service *Service, brands BrandDirectory, renderer DocumentRenderer, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		brands:    brands,
		renderer:  renderer,
		templates: templates,
		csrf:      csrf,
		validate:  validator.New(),
	}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listPage)
	r.Get("/products/export.csv", h.exportCSV)
	r.Get("/products/new", h.showCreateForm)
	r.Post("/products", h.create)
	r.Post("/products/import", h.importCSV)
	r.Post("/products/bulk-delete", h.bulkDelete)
	r.Get("/products/{id}", h.show)
	r.Get("/products/{id}/edit", h.showEditForm)
	r.Post("/products/{id}/edit", h.update)
	r.Post("/products/{id}/delete", h.delete)
	r.Get("/products/{id}/document.pdf", h.downloadPDF)
}

// productForm is the create/edit payload posted by the admin UI.
type productForm struct {
	Code        string  `json:"code" validate:"required,max=50"`
	Name        string  `json:"name" validate:"required,max=200"`
	BrandName   string  `json:"brandName" validate:"required,max=100"`
	PriceVnd    float64 `json:"priceVnd" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Status      *int    `json:"status"`
	Description string  `json:"description" validate:"required"`
	ImageURL    string  `json:"imageUrl"`
}

type listPageData struct {
	Result    shared.PagedResult[ProductView]
	Filter    *ProductFilter
	Keyword   string
	BrandName string
	Status    string
	Brands    []Brand
	Query     string
}

func (h *Handler) listPage(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	result, err := h.service.List(r.Context(), page, pageSize, filter)
	if err != nil {
		h.renderListError(w, r, err)
		return
	}

	data := listPageData{
		Result:    result,
		Filter:    filter,
		Keyword:   r.URL.Query().Get("keyword"),
		BrandName: r.URL.Query().Get("brand"),
		Status:    r.URL.Query().Get("status"),
		Query:     r.URL.RawQuery,
	}
	if brands, err := h.brands.ListBrands(r.Context()); err == nil {
		data.Brands = brands
	} else {
		h.logger.Warn("brand list unavailable", slog.Any("error", err))
	}

	// Background refreshes from the list page only need the table body.
	template := "products/list"
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		template = "products/table"
	}
	h.render(w, r, template, "Products", data)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "products/detail", product.Name, product)
}

type formPageData struct {
	Product ProductView
	Brands  []Brand
	IsEdit  bool
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	brands, err := h.brands.ListBrands(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "products/form", "New product", formPageData{Brands: brands})
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	brands, err := h.brands.ListBrands(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "products/form", "Edit "+product.Name, formPageData{Product: product, Brands: brands, IsEdit: true})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseProductForm(r)
	if err != nil {
		h.respondFailure(w, http.StatusBadRequest, err)
		return
	}
	name, err := h.service.Create(r.Context(), CreateProductInput{
		Code:        form.Code,
		Name:        form.Name,
		BrandName:   form.BrandName,
		PriceVnd:    form.PriceVnd,
		Stock:       form.Stock,
		Status:      form.Status,
		Description: form.Description,
		ImageURL:    form.ImageURL,
		ActorID:     actorID(r),
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondOK(w, map[string]any{"name": name})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondFailure(w, http.StatusBadRequest, fmt.Errorf("invalid product id"))
		return
	}
	form, err := h.parseProductForm(r)
	if err != nil {
		h.respondFailure(w, http.StatusBadRequest, err)
		return
	}
	status := StatusActive
	if form.Status != nil {
		status = *form.Status
	}
	err = h.service.Edit(r.Context(), EditProductInput{
		ID:          id,
		Code:        form.Code,
		Name:        form.Name,
		BrandName:   form.BrandName,
		PriceVnd:    form.PriceVnd,
		Stock:       form.Stock,
		Status:      status,
		Description: form.Description,
		ImageURL:    form.ImageURL,
		ActorID:     actorID(r),
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondOK(w, nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondFailure(w, http.StatusBadRequest, fmt.Errorf("invalid product id"))
		return
	}
	ok, err := h.service.Delete(r.Context(), id, actorID(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondOK(w, map[string]any{"deleted": ok})
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.respondFailure(w, http.StatusBadRequest, fmt.Errorf("invalid form payload"))
		return
	}
	var ids []int64
	for _, raw := range r.PostForm["ids"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				h.respondFailure(w, http.StatusBadRequest, fmt.Errorf("invalid product id %q", part))
				return
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		h.respondFailure(w, http.StatusBadRequest, fmt.Errorf("no product ids supplied"))
		return
	}
	count, err := h.service.BulkDelete(r.Context(), ids, actorID(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondOK(w, map[string]any{"successCount": count})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListAll(r.Context(), parseFilter(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	if err := WriteCSV(w, products); err != nil {
		h.logger.Error("csv export aborted", slog.Any("error", err))
	}
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondFailure(w, http.StatusBadRequest, fmt.Errorf("missing upload file"))
		return
	}
	defer file.Close()

	result, err := h.service.ImportCSV(r.Context(), file, actorID(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondOK(w, map[string]any{"result": result})
}

func (h *Handler) downloadPDF(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		http.Error(w, "document rendering not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	pdf, err := h.renderer.RenderProductPDF(r.Context(), product)
	if err != nil {
		h.logger.Error("pdf render failed", slog.Int64("product_id", id), slog.Any("error", err))
		http.Error(w, "document rendering failed", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="product-%d.pdf"`, id))
	_, _ = w.Write(pdf)
}

func (h *Handler) parseProductForm(r *http.Request) (productForm, error) {
	if err := r.ParseForm(); err != nil {
		return productForm{}, fmt.Errorf("invalid form payload")
	}
	form := productForm{
		Code:        r.PostFormValue("code"),
		Name:        r.PostFormValue("name"),
		BrandName:   r.PostFormValue("brandName"),
		Description: r.PostFormValue("description"),
		ImageURL:    r.PostFormValue("imageUrl"),
	}
	if raw := r.PostFormValue("priceVnd"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return productForm{}, fmt.Errorf("invalid price")
		}
		form.PriceVnd = price
	}
	if raw := r.PostFormValue("stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return productForm{}, fmt.Errorf("invalid stock")
		}
		form.Stock = stock
	}
	if raw := r.PostFormValue("status"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			return productForm{}, fmt.Errorf("invalid status")
		}
		form.Status = &status
	}
	if err := h.validate.Struct(form); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return productForm{}, fmt.Errorf("field %s is invalid", invalid[0].Field())
		}
		return productForm{}, fmt.Errorf("invalid form payload")
	}
	return form, nil
}

// parseFilter reads the listing dimensions from query parameters.
// Unparseable numbers are treated as absent.
func parseFilter(r *http.Request) *ProductFilter {
	q := r.URL.Query()
	filter := &ProductFilter{
		Keyword:   q.Get("keyword"),
		BrandName: q.Get("brand"),
	}
	filter.PriceFrom, _ = strconv.ParseFloat(q.Get("priceFrom"), 64)
	filter.PriceTo, _ = strconv.ParseFloat(q.Get("priceTo"), 64)
	filter.Price, _ = strconv.ParseFloat(q.Get("price"), 64)
	filter.StockFrom, _ = strconv.Atoi(q.Get("stockFrom"))
	filter.StockTo, _ = strconv.Atoi(q.Get("stockTo"))
	filter.Stock, _ = strconv.Atoi(q.Get("stock"))
	if raw := q.Get("status"); raw != "" {
		if status, err := strconv.Atoi(raw); err == nil {
			filter.Status = &status
		}
	}
	return filter
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// actorID reads the signed-in account id from the session. Zero means
// unknown; the service falls back to its default actor policy.
func actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any) {
	td := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		td.Flash = sess.PopFlash()
		if token, err := h.csrf.EnsureToken(r.Context(), sess); err == nil {
			td.CSRFToken = token
		}
	}
	if err := h.templates.Render(w, template, td); err != nil {
		h.logger.Error("template render failed", slog.String("template", template), slog.Any("error", err))
	}
}

func (h *Handler) renderListError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrInvalidInput) {
		h.respondFailure(w, http.StatusBadRequest, err)
		return
	}
	h.serverError(w, r, err)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("catalog request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) respondOK(w http.ResponseWriter, extra map[string]any) {
	payload := map[string]any{"ok": true}
	for k, v := range extra {
		payload[k] = v
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) respondFailure(w http.ResponseWriter, status int, err error) {
	httpx.JSON(w, status, map[string]any{"ok": false, "error": err.Error()})
}

// respondDomainError maps catalog sentinels onto the JSON shape the
// admin front end expects.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		h.respondFailure(w, http.StatusBadRequest, err)
	case errors.Is(err, ErrDuplicate):
		h.respondFailure(w, http.StatusConflict, err)
	case errors.Is(err, ErrNotFound):
		h.respondFailure(w, http.StatusNotFound, err)
	default:
		h.logger.Error("catalog operation failed", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal error"})
	}
}
