package models

import "fmt"

// Category identifies a risk category
type Category string

const (
	Commercial Category = "commercial"
	Ethical    Category = "ethical"
	Legal      Category = "legal"
)

// Categories lists the categories in declaration order
var Categories = []Category{Commercial, Ethical, Legal}

// Label returns the Turkish display label of the category
func (c Category) Label() string {
	switch c {
	case Commercial:
		return "Ticari Risk"
	case Ethical:
		return "Etik Risk"
	case Legal:
		return "Yasal Risk"
	}
	return string(c)
}

// ParseCategory maps a configured category name to a Category
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case Commercial, Ethical, Legal:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown risk category %q", s)
}

// Level is the severity tier of a risk phrase
type Level string

const (
	LevelNone   Level = "none"
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Levels lists the phrase tiers in configuration order
var Levels = []Level{LevelLow, LevelMedium, LevelHigh}

// Score returns the numeric risk score (1 low, 2 medium, 3 high)
func (l Level) Score() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	}
	return 0
}

// Label returns the Turkish display label of the level
func (l Level) Label() string {
	switch l {
	case LevelLow:
		return "Düşük"
	case LevelMedium:
		return "Orta"
	case LevelHigh:
		return "Yüksek"
	}
	return "Yok"
}

// HighestLevel returns the most severe level among non-negated findings
func HighestLevel(findings []RiskFinding) Level {
	level := LevelNone
	for _, f := range findings {
		if f.Negated {
			continue
		}
		if f.Level.Score() > level.Score() {
			level = f.Level
		}
	}
	return level
}
