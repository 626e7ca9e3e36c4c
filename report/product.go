package report

import (
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/mercato-admin/mercato-admin/internal/catalog"
)

const renderTimeout = 20 * time.Second

var productSheet = template.Must(template.New("product").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; margin: 2cm; }
h1 { margin-bottom: 0; }
.code { color: #555; margin-top: 0; }
table { border-collapse: collapse; margin-top: 1em; }
td { border: 1px solid #ccc; padding: 6px 12px; }
td:first-child { font-weight: bold; background: #f5f5f5; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p class="code">{{.Code}}</p>
<table>
<tr><td>Brand</td><td>{{.BrandName}}</td></tr>
<tr><td>Price (VND)</td><td>{{printf "%.0f" .PriceVnd}}</td></tr>
<tr><td>Stock</td><td>{{.Stock}}</td></tr>
<tr><td>Status</td><td>{{if eq .Status 1}}Active{{else if eq .Status 0}}Inactive{{else}}Deleted{{end}}</td></tr>
<tr><td>Description</td><td>{{.Description}}</td></tr>
<tr><td>Created</td><td>{{.CreatedAt.Format "2006-01-02 15:04:05"}} by {{.CreatedBy}}</td></tr>
<tr><td>Updated</td><td>{{.UpdatedAt.Format "2006-01-02 15:04:05"}} by {{.UpdatedBy}}</td></tr>
</table>
</body>
</html>`))

// ProductRenderer turns product views into PDF sheets.
type ProductRenderer struct {
	client *Client
}

// NewProductRenderer wires the renderer to a Gotenberg client.
func NewProductRenderer(client *Client) *ProductRenderer {
	return &ProductRenderer{client: client}
}

// RenderProductPDF builds the product sheet HTML and converts it.
func (r *ProductRenderer) RenderProductPDF(ctx context.Context, product catalog.ProductView) ([]byte, error) {
	var html strings.Builder
	if err := productSheet.Execute(&html, product); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	return r.client.RenderHTML(ctx, html.String())
}
