package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type cartItemDTO struct {
	ID              uuid.UUID         `json:"id"`
	ProductID       uuid.UUID         `json:"product_id"`
	SellerProductID *uuid.UUID        `json:"seller_product_id,omitempty"`
	Variants        map[string]string `json:"variants"`
	Quantity        int               `json:"quantity"`
	Price           float64           `json:"price"`
	Title           string            `json:"title"`
	Image           *string           `json:"image,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type cartDTO struct {
	ID        uuid.UUID     `json:"id"`
	Anonymous bool          `json:"anonymous"`
	Items     []cartItemDTO `json:"items"`
}

func cartItemFromModel(item models.CartItem) cartItemDTO {
	return cartItemDTO{
		ID:              item.ID,
		ProductID:       item.ProductID,
		SellerProductID: item.SellerProductID,
		Variants:        item.Variants,
		Quantity:        item.Quantity,
		Price:           item.Price,
		Title:           item.Title,
		Image:           item.Image,
		UpdatedAt:       item.UpdatedAt,
	}
}

func cartFromView(view *cart.CartView) cartDTO {
	out := cartDTO{
		ID:        view.Cart.ID,
		Anonymous: view.Cart.UserID == nil,
		Items:     make([]cartItemDTO, 0, len(view.Items)),
	}
	for _, item := range view.Items {
		out.Items = append(out.Items, cartItemFromModel(item))
	}
	return out
}

type orderItemDTO struct {
	ID              uuid.UUID  `json:"id"`
	ProductID       uuid.UUID  `json:"product_id"`
	SellerProductID *uuid.UUID `json:"seller_product_id,omitempty"`
	Quantity        int        `json:"quantity"`
	Price           float64    `json:"price"`
}

type orderDTO struct {
	ID            uuid.UUID           `json:"id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalAmount   float64             `json:"total_amount"`
	PaidAmount    *float64            `json:"paid_amount,omitempty"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Items         []orderItemDTO      `json:"items,omitempty"`
}

func orderFromModel(order *models.Order, items []models.OrderItem) orderDTO {
	out := orderDTO{
		ID:            order.ID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		PaidAmount:    order.PaidAmount,
		DeliveredAt:   order.DeliveredAt,
		CancelledAt:   order.CancelledAt,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range items {
		out.Items = append(out.Items, orderItemDTO{
			ID:              item.ID,
			ProductID:       item.ProductID,
			SellerProductID: item.SellerProductID,
			Quantity:        item.Quantity,
			Price:           item.Price,
		})
	}
	return out
}

type reviewDTO struct {
	ID         uuid.UUID                `json:"id"`
	SellerID   uuid.UUID                `json:"seller_id"`
	Status     enums.VerificationStatus `json:"status"`
	ReviewerID *uuid.UUID               `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time               `json:"reviewed_at,omitempty"`
	Notes      *string                  `json:"notes,omitempty"`
}

func reviewFromModel(req *models.VerificationRequest) reviewDTO {
	return reviewDTO{
		ID:         req.ID,
		SellerID:   req.SellerID,
		Status:     req.Status,
		ReviewerID: req.ReviewerID,
		ReviewedAt: req.ReviewedAt,
		Notes:      req.Notes,
	}
}
