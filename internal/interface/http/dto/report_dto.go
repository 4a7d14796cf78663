package dto

import (
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/report"
)

type RevenueDTO struct {
	Total           float64 `json:"total"`
	Average         float64 `json:"average"`
	CommissionTotal float64 `json:"commission_total"`
	PayoutTotal     float64 `json:"payout_total"`
	Count           int     `json:"count"`
	Currency        string  `json:"currency"`
}

type SummaryResponse struct {
	StatusCounts  map[string]int         `json:"status_counts"`
	Satisfaction  report.Satisfaction    `json:"satisfaction"`
	Revenue       RevenueDTO             `json:"revenue"`
	TopCategories []report.CategoryCount `json:"top_categories"`
	TotalBookings int                    `json:"total_bookings"`
	TotalListings int                    `json:"total_listings"`
}

func ToSummaryResponse(s *report.Summary) SummaryResponse {
	counts := make(map[string]int, len(s.StatusCounts))
	for status, n := range s.StatusCounts {
		counts[string(status)] = n
	}
	return SummaryResponse{
		StatusCounts: counts,
		Satisfaction: s.Satisfaction,
		Revenue: RevenueDTO{
			Total:           s.Revenue.Total.Units(),
			Average:         s.Revenue.Average.Units(),
			CommissionTotal: s.Revenue.CommissionTotal.Units(),
			PayoutTotal:     s.Revenue.PayoutTotal.Units(),
			Count:           s.Revenue.Count,
			Currency:        valueobject.DefaultCurrency,
		},
		TopCategories: s.TopCategories,
		TotalBookings: s.TotalBookings,
		TotalListings: s.TotalListings,
	}
}
