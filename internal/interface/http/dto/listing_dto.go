package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/listing"
)

type GeoDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type CreateListingRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	Category       string     `json:"category" binding:"required"`
	Skills         []string   `json:"skills" binding:"required"`
	BudgetMin      float64    `json:"budget_min" binding:"required,gt=0"`
	BudgetMax      float64    `json:"budget_max" binding:"required,gt=0"`
	BudgetMode     string     `json:"budget_mode" binding:"required"`
	DurationHours  int        `json:"duration_hours" binding:"required"`
	Urgency        string     `json:"urgency"`
	City           string     `json:"city" binding:"required"`
	Province       string     `json:"province" binding:"required"`
	Geo            *GeoDTO    `json:"geo"`
	ApplicationCap *int       `json:"application_cap"`
	StartDate      *time.Time `json:"start_date"`
	Publish        bool       `json:"publish"`
}

// ToInput переводит суммы из единиц валюты в минимальные единицы.
func (r CreateListingRequest) ToInput(ownerID uuid.UUID) (listing.CreateListingInput, error) {
	min, err := valueobject.NewMoney(r.BudgetMin)
	if err != nil {
		return listing.CreateListingInput{}, err
	}
	max, err := valueobject.NewMoney(r.BudgetMax)
	if err != nil {
		return listing.CreateListingInput{}, err
	}
	var geo *entity.GeoPoint
	if r.Geo != nil {
		geo = &entity.GeoPoint{Lat: r.Geo.Lat, Lng: r.Geo.Lng}
	}
	return listing.CreateListingInput{
		OwnerID:        ownerID,
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		Skills:         r.Skills,
		BudgetMin:      min,
		BudgetMax:      max,
		BudgetMode:     valueobject.BudgetMode(r.BudgetMode),
		DurationHours:  r.DurationHours,
		Urgency:        valueobject.Urgency(r.Urgency),
		Location:       entity.Location{City: r.City, Province: r.Province, Geo: geo},
		ApplicationCap: r.ApplicationCap,
		StartDate:      r.StartDate,
		Publish:        r.Publish,
	}, nil
}

type ListingResponse struct {
	ID                uuid.UUID  `json:"id"`
	OwnerID           uuid.UUID  `json:"owner_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Skills            []string   `json:"skills"`
	BudgetMin         float64    `json:"budget_min"`
	BudgetMax         float64    `json:"budget_max"`
	BudgetMode        string     `json:"budget_mode"`
	BudgetPerHour     float64    `json:"budget_per_hour"`
	Currency          string     `json:"currency"`
	DurationHours     int        `json:"duration_hours"`
	Urgency           string     `json:"urgency"`
	City              string     `json:"city"`
	Province          string     `json:"province"`
	Geo               *GeoDTO    `json:"geo,omitempty"`
	Status            string     `json:"status"`
	ApplicationCap    *int       `json:"application_cap,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	ApplicationsCount int        `json:"applications_count"`
	ViewsCount        int64      `json:"views_count"`
	Version           int64      `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func ToListingResponse(l *entity.Listing) ListingResponse {
	resp := ListingResponse{
		ID:                l.ID,
		OwnerID:           l.OwnerID,
		Title:             l.Title,
		Description:       l.Description,
		Category:          l.Category,
		Skills:            append([]string{}, l.Skills...),
		BudgetMin:         l.Budget.Min.Units(),
		BudgetMax:         l.Budget.Max.Units(),
		BudgetMode:        string(l.Budget.Mode),
		BudgetPerHour:     l.BudgetPerHour().Units(),
		Currency:          valueobject.DefaultCurrency,
		DurationHours:     l.DurationHours,
		Urgency:           string(l.Urgency),
		City:              l.Location.City,
		Province:          l.Location.Province,
		Status:            string(l.Status),
		ApplicationCap:    l.ApplicationCap,
		StartDate:         l.StartDate,
		ApplicationsCount: l.ApplicationsCount,
		ViewsCount:        l.ViewsCount,
		Version:           l.Version,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if l.Location.Geo != nil {
		resp.Geo = &GeoDTO{Lat: l.Location.Geo.Lat, Lng: l.Location.Geo.Lng}
	}
	return resp
}

func ToListingResponses(listings []*entity.Listing) []ListingResponse {
	result := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		result = append(result, ToListingResponse(l))
	}
	return result
}

type CandidateResponse struct {
	WorkerID      uuid.UUID `json:"worker_id"`
	Name          string    `json:"name"`
	City          string    `json:"city"`
	Province      string    `json:"province"`
	Rating        float64   `json:"rating"`
	HourlyRate    float64   `json:"hourly_rate"`
	SkillScore    float64   `json:"skill_score"`
	MatchedSkills []string  `json:"matched_skills"`
	LocationScore float64   `json:"location_score"`
	BudgetFit     float64   `json:"budget_fit"`
	Score         float64   `json:"score"`
}

func ToCandidateResponses(matches []entity.CandidateMatch) []CandidateResponse {
	result := make([]CandidateResponse, 0, len(matches))
	for _, m := range matches {
		result = append(result, CandidateResponse{
			WorkerID:      m.Worker.UserID,
			Name:          m.Worker.Name,
			City:          m.Worker.City,
			Province:      m.Worker.Province,
			Rating:        m.Worker.Rating,
			HourlyRate:    m.Worker.HourlyRate.Units(),
			SkillScore:    m.Skills.Score,
			MatchedSkills: append([]string{}, m.Skills.Matched...),
			LocationScore: m.LocationScore,
			BudgetFit:     m.BudgetFit,
			Score:         m.Score,
		})
	}
	return result
}

type ViewsResponse struct {
	ViewsCount int64 `json:"views_count"`
}
