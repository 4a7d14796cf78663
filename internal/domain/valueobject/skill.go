package valueobject

import (
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

const (
	MaxSkills      = 10
	MinSkillLength = 2
	MaxSkillLength = 50
)

// SkillSet набор навыков без дубликатов (сравнение без учёта регистра).
// Порядок первого вхождения сохраняется.
type SkillSet []string

// NewSkillSet проверяет требования объявления: непустой набор, не больше 10 навыков по 2-50 символов.
func NewSkillSet(raw []string) (SkillSet, error) {
	set := NormalizeSkills(raw)
	if len(set) == 0 {
		return nil, apperror.Validation("нужно указать хотя бы один навык")
	}
	if len(set) > MaxSkills {
		return nil, apperror.Validation("можно указать не больше %d навыков", MaxSkills)
	}
	for _, skill := range set {
		n := utf8.RuneCountInString(skill)
		if n < MinSkillLength || n > MaxSkillLength {
			return nil, apperror.Validation("навык %q должен быть длиной от %d до %d символов", skill, MinSkillLength, MaxSkillLength)
		}
	}
	return set, nil
}

// NormalizeSkills обрезает пробелы и убирает дубликаты без валидации.
func NormalizeSkills(raw []string) SkillSet {
	seen := make(map[string]struct{}, len(raw))
	set := make(SkillSet, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := SkillKey(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		set = append(set, s)
	}
	return set
}

// SkillKey ключ сравнения навыков.
func SkillKey(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

// Contains проверяет наличие навыка без учёта регистра.
func (s SkillSet) Contains(skill string) bool {
	key := SkillKey(skill)
	for _, item := range s {
		if SkillKey(item) == key {
			return true
		}
	}
	return false
}

// ContainsAny есть ли хотя бы один навык из списка.
func (s SkillSet) ContainsAny(skills []string) bool {
	for _, skill := range skills {
		if s.Contains(skill) {
			return true
		}
	}
	return false
}
