package controllers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cartrescue/cartrescue-backend/api/responses"
	"github.com/cartrescue/cartrescue-backend/api/validators"
	"github.com/cartrescue/cartrescue-backend/internal/checkouts"
	"github.com/cartrescue/cartrescue-backend/internal/products"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
	"github.com/cartrescue/cartrescue-backend/pkg/money"
	"github.com/cartrescue/cartrescue-backend/pkg/pagination"
)

const reportTimeLayout = "2006-01-02 15:04:05"

type checkoutLister interface {
	List(ctx context.Context, params pagination.Params, dateMin, dateMax time.Time) ([]checkouts.CheckoutRecord, error)
}

type productFinder interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]products.Product, error)
}

type reportLineItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Permalink string `json:"permalink"`
	ImageURL  string `json:"image_url"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
	InStock   bool   `json:"in_stock"`
}

type reportCheckout struct {
	CheckoutID          int64            `json:"checkout_id"`
	UserID              int64            `json:"user_id"`
	UserEmail           string           `json:"user_email"`
	IsGuest             bool             `json:"is_guest"`
	CheckoutSubtotal    string           `json:"checkout_subtotal"`
	CheckoutSubtotalTax string           `json:"checkout_subtotal_tax"`
	CheckoutTotal       string           `json:"checkout_total"`
	CheckoutTotalTax    string           `json:"checkout_total_tax"`
	Coupons             []string         `json:"coupons,omitempty"`
	LineItems           []reportLineItem `json:"line_items"`
	CheckoutUpdated     string           `json:"checkout_updated"`
	CheckoutUpdatedTS   int64            `json:"checkout_updated_ts"`
	CheckoutCreated     string           `json:"checkout_created"`
	CheckoutCreatedTS   int64            `json:"checkout_created_ts"`
	CheckoutRecoveryURL string           `json:"checkout_recovery_url"`
}

// ListAbandonedCheckouts serves the paginated report consumed by the external
// poller. The top-level shape is fixed: checkouts, currency_code, page.
func ListAbandonedCheckouts(repo checkoutLister, catalog productFinder, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perPage, err := validators.ParseQueryInt(r, "per_page", pagination.DefaultPerPage, 1, pagination.MaxPerPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dateMin, err := validators.ParseQueryDate(r, "date_min")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dateMax, err := validators.ParseQueryDate(r, "date_max")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !dateMax.IsZero() {
			// date_max covers its whole day
			dateMax = dateMax.AddDate(0, 0, 1).Add(-time.Second)
		}

		records, err := repo.List(r.Context(), pagination.Params{Page: page, PerPage: perPage}, dateMin, dateMax)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := stockByProduct(r.Context(), catalog, records)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency := cfg.Store.CurrencyCode
		report := make([]reportCheckout, 0, len(records))
		for _, record := range records {
			report = append(report, presentCheckout(record, stock, currency, cfg))
		}

		responses.WriteRaw(w, http.StatusOK, map[string]any{
			"checkouts":     report,
			"currency_code": currency,
			"page":          page,
		})
	}
}

// stockByProduct resolves current availability for every product referenced on
// the page in one query. A product missing from the catalog reports as out of
// stock rather than failing the page.
func stockByProduct(ctx context.Context, catalog productFinder, records []checkouts.CheckoutRecord) (map[int64]products.Product, error) {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, record := range records {
		for _, item := range record.CheckoutContents.Items {
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	if len(ids) == 0 {
		return map[int64]products.Product{}, nil
	}
	return catalog.FindByIDs(ctx, ids)
}

func presentCheckout(record checkouts.CheckoutRecord, stock map[int64]products.Product, currency string, cfg *config.Config) reportCheckout {
	lines := make([]reportLineItem, 0, len(record.CheckoutContents.Items))
	subtotalTax := decimal.Zero
	for _, item := range record.CheckoutContents.Items {
		product, known := stock[item.ProductID]
		if known {
			subtotalTax = subtotalTax.Add(product.TaxRate.Mul(decimal.NewFromInt(item.LineTotalCents())))
		}
		lines = append(lines, reportLineItem{
			ProductID: item.ProductID,
			Name:      item.Title,
			SKU:       product.SKU,
			Permalink: product.Permalink,
			ImageURL:  product.ImageURL,
			Quantity:  item.Qty,
			UnitPrice: money.FormatCents(item.PriceCents, currency),
			LineTotal: money.FormatCents(item.LineTotalCents(), currency),
			InStock:   known && product.Purchasable(item.Qty),
		})
	}

	totals := record.CheckoutContents.Totals
	// tax on the discounted total keeps the subtotal proportion
	totalTax := subtotalTax
	if totals.SubtotalCents > 0 && totals.DiscountCents > 0 {
		totalTax = subtotalTax.
			Mul(decimal.NewFromInt(totals.SubtotalCents - totals.DiscountCents)).
			Div(decimal.NewFromInt(totals.SubtotalCents))
	}

	return reportCheckout{
		CheckoutID:          record.CheckoutID,
		UserID:              record.UserID,
		UserEmail:           record.UserEmail,
		IsGuest:             record.IsGuest(),
		CheckoutSubtotal:    money.FormatCents(totals.SubtotalCents, currency),
		CheckoutSubtotalTax: money.FormatCents(subtotalTax.Round(0).IntPart(), currency),
		CheckoutTotal:       money.FormatCents(totals.TotalCents, currency),
		CheckoutTotalTax:    money.FormatCents(totalTax.Round(0).IntPart(), currency),
		Coupons:             record.CheckoutContents.Coupons,
		LineItems:           lines,
		CheckoutUpdated:     record.CheckoutUpdated.UTC().Format(reportTimeLayout),
		CheckoutUpdatedTS:   record.CheckoutUpdatedTS,
		CheckoutCreated:     record.CheckoutCreated.UTC().Format(reportTimeLayout),
		CheckoutCreatedTS:   record.CheckoutCreatedTS,
		CheckoutRecoveryURL: recoveryURL(cfg, record.CheckoutUUID),
	}
}

func recoveryURL(cfg *config.Config, checkoutUUID string) string {
	return cfg.Store.HomeURL + "?" + cfg.Checkouts.RecoveryParam + "=" + url.QueryEscape(checkoutUUID)
}
