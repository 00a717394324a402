package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

const maxStockThreshold = 1_000_000

// reportPage reads page and page_size; an absent page_size is left at zero so
// the reports service applies its configured default.
func reportPage(r *http.Request) (int, int, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return 0, 0, err
	}
	size, err := validators.ParseQueryInt(r, "page_size", 0, 1, pagination.MaxPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func reportRange(r *http.Request) (reports.Range, error) {
	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return reports.Range{}, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return reports.Range{}, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return reports.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	return reports.Range{From: from, To: to}, nil
}

func salesParams(r *http.Request) (reports.SalesParams, error) {
	page, size, err := reportPage(r)
	if err != nil {
		return reports.SalesParams{}, err
	}
	window, err := reportRange(r)
	if err != nil {
		return reports.SalesParams{}, err
	}
	sellerID, err := validators.ParseQueryUUID(r, "seller_id")
	if err != nil {
		return reports.SalesParams{}, err
	}
	return reports.SalesParams{SellerID: sellerID, Range: window, Page: page, PageSize: size}, nil
}

func AdminCommissionReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}
		params, err := salesParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Commission(r.Context(), reports.CommissionParams{
			SellerID: params.SellerID,
			Range:    params.Range,
			Page:     params.Page,
			PageSize: params.PageSize,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func AdminStockReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}
		page, size, err := reportPage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerID, err := validators.ParseQueryUUID(r, "seller_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lowStock, err := validators.ParseQueryOptionalInt(r, "low_stock", 0, maxStockThreshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Stock(r.Context(), reports.StockParams{
			SellerID:    sellerID,
			LowStockAt:  lowStock,
			TitleSearch: validators.SanitizeString(strings.TrimSpace(r.URL.Query().Get("q")), maxTitleLength),
			Page:        page,
			PageSize:    size,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func AdminSellerSalesReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}
		params, err := salesParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.SellerSales(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func AdminWalletReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}
		params, err := salesParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Wallet(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
