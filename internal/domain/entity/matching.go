package entity

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
)

// Дискретные уровни совпадения локации.
const (
	LocationScoreSameCity     = 1.0
	LocationScoreSameProvince = 0.7
	LocationScoreElsewhere    = 0.3
)

// SkillMatchThreshold минимальная доля закрытых навыков (включительно).
const SkillMatchThreshold = 0.5

// Веса итоговой оценки кандидата.
const (
	weightSkills   = 0.6
	weightLocation = 0.25
	weightBudget   = 0.15
)

type SkillMatch struct {
	Matches bool
	Score   float64
	Matched valueobject.SkillSet
}

// MatchSkills доля требуемых навыков, которые есть у исполнителя.
// Пустой набор требований совпадает всегда со score 1.0 и пустым matched.
func MatchSkills(required, offered []string) SkillMatch {
	req := valueobject.NormalizeSkills(required)
	if len(req) == 0 {
		return SkillMatch{Matches: true, Score: 1.0}
	}

	have := make(map[string]struct{}, len(offered))
	for _, s := range offered {
		have[valueobject.SkillKey(s)] = struct{}{}
	}

	matched := make(valueobject.SkillSet, 0, len(req))
	for _, s := range req {
		if _, ok := have[valueobject.SkillKey(s)]; ok {
			matched = append(matched, s)
		}
	}

	score := float64(len(matched)) / float64(len(req))
	return SkillMatch{
		Matches: score >= SkillMatchThreshold,
		Score:   score,
		Matched: matched,
	}
}

// LocationScore город совпал - 1.0, та же провинция - 0.7, иначе 0.3.
func LocationScore(listingCity, listingProvince, workerCity, workerProvince string) float64 {
	if sameText(listingCity, workerCity) {
		return LocationScoreSameCity
	}
	if sameText(listingProvince, workerProvince) {
		return LocationScoreSameProvince
	}
	return LocationScoreElsewhere
}

func sameText(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// WorkerProfile проекция профиля исполнителя для подбора.
type WorkerProfile struct {
	UserID     uuid.UUID
	Name       string
	Skills     []string
	City       string
	Province   string
	HourlyRate valueobject.Money
	Rating     float64
}

type CandidateMatch struct {
	Worker        WorkerProfile
	Skills        SkillMatch
	LocationScore float64
	BudgetFit     float64
	Score         float64
}

// BudgetFit 1.0 если ставка исполнителя укладывается в бюджет часа, иначе доля бюджета от ставки.
func BudgetFit(budgetPerHour, workerRate valueobject.Money) float64 {
	if workerRate <= 0 || workerRate <= budgetPerHour {
		return 1.0
	}
	return float64(budgetPerHour) / float64(workerRate)
}

// MatchWorker оценивает одного исполнителя относительно объявления.
func MatchWorker(l *Listing, w WorkerProfile) CandidateMatch {
	skills := MatchSkills(l.Skills, w.Skills)
	loc := LocationScore(l.Location.City, l.Location.Province, w.City, w.Province)
	fit := BudgetFit(l.BudgetPerHour(), w.HourlyRate)
	return CandidateMatch{
		Worker:        w,
		Skills:        skills,
		LocationScore: loc,
		BudgetFit:     fit,
		Score:         skills.Score*weightSkills + loc*weightLocation + fit*weightBudget,
	}
}

// RankCandidates отбрасывает исполнителей без совпадения по навыкам и сортирует остальных.
// Порядок детерминирован: score, затем рейтинг, затем id исполнителя.
func RankCandidates(l *Listing, workers []WorkerProfile) []CandidateMatch {
	result := make([]CandidateMatch, 0, len(workers))
	for _, w := range workers {
		if w.UserID == l.OwnerID {
			continue
		}
		m := MatchWorker(l, w)
		if !m.Skills.Matches {
			continue
		}
		result = append(result, m)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Worker.Rating != b.Worker.Rating {
			return a.Worker.Rating > b.Worker.Rating
		}
		return a.Worker.UserID.String() < b.Worker.UserID.String()
	})
	return result
}
