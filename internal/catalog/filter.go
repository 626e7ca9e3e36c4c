package catalog

import "fmt"

// normalizeRange swaps a low/high pair supplied in the wrong order. The
// swap only happens when both bounds are set.
func normalizeRange[T int | float64](from, to T) (T, T) {
	if from > 0 && to > 0 && from > to {
		return to, from
	}
	return from, to
}

// filterConditions composes the WHERE fragments for a product listing.
// Fragments are ANDed by the caller; placeholders start at argPos. The
// base exclusion of deleted rows is always the first condition.
func filterConditions(f *ProductFilter, argPos int) (conditions []string, args []any, nextPos int) {
	conditions = append(conditions, "p.status >= 0")

	if f == nil {
		return conditions, args, argPos
	}

	if f.BrandName != "" {
		conditions = append(conditions, fmt.Sprintf("b.name ILIKE '%%' || $%d || '%%'", argPos))
		args = append(args, f.BrandName)
		argPos++
	}

	priceFrom, priceTo := normalizeRange(f.PriceFrom, f.PriceTo)
	if priceFrom > 0 {
		conditions = append(conditions, fmt.Sprintf("p.price_vnd >= $%d", argPos))
		args = append(args, priceFrom)
		argPos++
	}
	if priceTo > 0 {
		conditions = append(conditions, fmt.Sprintf("p.price_vnd <= $%d", argPos))
		args = append(args, priceTo)
		argPos++
	}
	if priceFrom <= 0 && priceTo <= 0 && f.Price > 0 {
		// Upper bound rather than equality. Looks accidental but shipped
		// that way; keep until product signs off on changing it.
		conditions = append(conditions, fmt.Sprintf("p.price_vnd <= $%d", argPos))
		args = append(args, f.Price)
		argPos++
	}

	stockFrom, stockTo := normalizeRange(f.StockFrom, f.StockTo)
	if stockFrom > 0 {
		conditions = append(conditions, fmt.Sprintf("p.stock >= $%d", argPos))
		args = append(args, stockFrom)
		argPos++
	}
	if stockTo > 0 {
		conditions = append(conditions, fmt.Sprintf("p.stock <= $%d", argPos))
		args = append(args, stockTo)
		argPos++
	}
	if stockFrom <= 0 && stockTo <= 0 && f.Stock > 0 {
		conditions = append(conditions, fmt.Sprintf("p.stock = $%d", argPos))
		args = append(args, f.Stock)
		argPos++
	}

	if f.Status != nil && (*f.Status == StatusInactive || *f.Status == StatusActive) {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", argPos))
		args = append(args, *f.Status)
		argPos++
	}

	if keyword := FoldSearchText(f.Keyword); keyword != "" {
		conditions = append(conditions, fmt.Sprintf("p.search_keyword LIKE '%%' || $%d || '%%'", argPos))
		args = append(args, keyword)
		argPos++
	}

	return conditions, args, argPos
}

// orderClause decides the listing order. Any price signal switches to
// price-descending; id-descending is the stable tie-break either way.
func orderClause(f *ProductFilter) string {
	if f.HasPriceSignal() {
		return "p.price_vnd DESC, p.id DESC"
	}
	return "p.id DESC"
}
