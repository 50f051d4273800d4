package models

import "time"

// Rubric is an ordered set of scoring criteria owned by exactly one peer
// review assignment. Criteria are immutable once the rubric is referenced.
type Rubric struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	Criteria  []Criterion `gorm:"foreignKey:RubricID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"criteria"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Criterion is a single named, bounded scoring dimension of a rubric.
type Criterion struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	RubricID    string `gorm:"size:36;index;uniqueIndex:idx_rubric_criterion_title,composite:rubric_title" json:"-"`
	Position    int    `gorm:"not null" json:"-"`
	Title       string `gorm:"size:255;not null;uniqueIndex:idx_rubric_criterion_title,composite:rubric_title" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	MinScore    int    `gorm:"not null" json:"min_score"`
	MaxScore    int    `gorm:"not null" json:"max_score"`
}

// CriterionByTitle returns the criterion with the given title, if present.
func (r Rubric) CriterionByTitle(title string) (Criterion, bool) {
	for _, criterion := range r.Criteria {
		if criterion.Title == title {
			return criterion, true
		}
	}
	return Criterion{}, false
}
