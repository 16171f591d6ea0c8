package models

import "time"

type Tag struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	QuestionCount int       `gorm:"default:0" json:"questionCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type TagRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (t Tag) Ref() TagRef {
	return TagRef{ID: t.ID, Name: t.Name}
}
