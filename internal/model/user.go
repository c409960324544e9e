package model

import (
	"time"
)

type RelationshipStatus string

const (
	StatusSingle    RelationshipStatus = "single"
	StatusDating    RelationshipStatus = "dating"
	StatusPartnered RelationshipStatus = "partnered"
	StatusMarried   RelationshipStatus = "married"
)

// swagger:model User
type User struct {
	BaseModel
	Name               string             `gorm:"size:100;not null" json:"name"`
	Email              string             `gorm:"size:100;unique;not null" json:"email"`
	Password           string             `gorm:"size:100;not null" json:"-"`
	RelationshipStatus RelationshipStatus `gorm:"size:20;default:'single'" json:"relationshipStatus"`
	PartnerName        string             `gorm:"size:100" json:"partnerName,omitempty"`
	Language           string             `gorm:"size:10;default:'en'" json:"language"`
	Avatar             string             `gorm:"size:255" json:"avatar"`
	Disabled           bool               `gorm:"default:false" json:"disabled"`
	LastLogin          time.Time          `gorm:"autoCreateTime" json:"lastLogin"`
	LastSeen           time.Time          `gorm:"autoCreateTime" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
