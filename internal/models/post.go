package models

// Post is the subset of the shared posts table this service updates.
type Post struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Status string `gorm:"size:32;not null;default:''"`
}

// TableName returns the posts table name.
func (Post) TableName() string {
	return "posts"
}
