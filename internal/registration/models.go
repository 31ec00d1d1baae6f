package registration

import (
	"time"

	"github.com/google/uuid"
)

// Schema holds both tables.
const Schema = "raffle"

type Registration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Phone     string    `gorm:"not null;uniqueIndex" json:"phone"`
	Age       int       `gorm:"not null" json:"age"`
	Gender    string    `gorm:"not null" json:"gender"`
	District  string    `gorm:"not null;index" json:"district"`
	City      string    `json:"city"`
	Region    string    `json:"region"`
	Country   string    `json:"country"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

type CommunityLink struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	District string `gorm:"not null;uniqueIndex" json:"district"`
	Link     string `gorm:"not null" json:"link"`
}

func (Registration) TableName() string  { return Schema + ".registrations" }
func (CommunityLink) TableName() string { return Schema + ".community_links" }
