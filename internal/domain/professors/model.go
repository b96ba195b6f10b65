package professors

import "time"

// Professor signs in separately from learners. Professors never gate learner access.
type Professor struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string
	Lastname  string
	Email     string `gorm:"not null;uniqueIndex:idx_professors_email"`
	Password  string `gorm:"not null" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
