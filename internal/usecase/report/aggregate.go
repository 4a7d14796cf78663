package report

import (
	"sort"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
)

// StatusCounts количество заявок в каждом статусе; отсутствующие статусы тоже попадают в ответ с нулём.
func StatusCounts(bookings []*entity.Booking) map[valueobject.BookingStatus]int {
	counts := make(map[valueobject.BookingStatus]int, len(valueobject.AllBookingStatuses))
	for _, s := range valueobject.AllBookingStatuses {
		counts[s] = 0
	}
	for _, b := range bookings {
		counts[b.Status]++
	}
	return counts
}

type Satisfaction struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// AverageSatisfaction среднее по всем выставленным оценкам обеих сторон.
func AverageSatisfaction(bookings []*entity.Booking) Satisfaction {
	var sum, count int
	for _, b := range bookings {
		for _, score := range []*int{b.ClientSatisfaction, b.WorkerSatisfaction} {
			if score != nil {
				sum += *score
				count++
			}
		}
	}
	if count == 0 {
		return Satisfaction{}
	}
	return Satisfaction{Average: float64(sum) / float64(count), Count: count}
}

type Revenue struct {
	Total           valueobject.Money `json:"total"`
	Average         valueobject.Money `json:"average"`
	CommissionTotal valueobject.Money `json:"commission_total"`
	PayoutTotal     valueobject.Money `json:"payout_total"`
	Count           int               `json:"count"`
}

// SettledRevenue суммы по оплаченным заявкам. Среднее округляется half-up до минимальной единицы.
func SettledRevenue(bookings []*entity.Booking) Revenue {
	var r Revenue
	for _, b := range bookings {
		if b.Status != valueobject.BookingStatusPaid {
			continue
		}
		p, ok := b.Payment()
		if !ok {
			continue
		}
		r.Total += p.Total
		r.CommissionTotal += p.Commission
		r.PayoutTotal += p.WorkerPayout
		r.Count++
	}
	if r.Count > 0 {
		r.Average = (r.Total + valueobject.Money(r.Count/2)) / valueobject.Money(r.Count)
	}
	return r
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryPopularity top-N категорий по числу объявлений; при равенстве по алфавиту.
func CategoryPopularity(listings []*entity.Listing, topN int) []CategoryCount {
	counts := make(map[string]int)
	for _, l := range listings {
		if l.Category == "" {
			continue
		}
		counts[l.Category]++
	}
	result := make([]CategoryCount, 0, len(counts))
	for category, n := range counts {
		result = append(result, CategoryCount{Category: category, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})
	if topN > 0 && len(result) > topN {
		result = result[:topN]
	}
	return result
}
