package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills an empty primary key before insert so rows carry an id even
// on drivers without gen_random_uuid().
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func (s *Seller) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

func (v *VerificationRequest) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (s *SellerProduct) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

func (o *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
