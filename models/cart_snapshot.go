package models

import "time"

// CartSnapshot is the persisted JSON form of one session's cart.
type CartSnapshot struct {
	SessionKey string    `gorm:"primaryKey;size:128;column:session_key" json:"session_key"`
	Data       string    `gorm:"type:text;not null" json:"data"`
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`
}

func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
