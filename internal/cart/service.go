package cart

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/security"
)

// EventDuplicateLines marks a cart holding more than one row for the same line.
const EventDuplicateLines = "cart.duplicate_lines"

const anonymousTokenBytes = 24

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Owner identifies whose cart is addressed: a user or an anonymous token.
type Owner struct {
	UserID *uuid.UUID
	Token  string
}

// CartView is a cart plus the anonymous token the client must keep.
type CartView struct {
	Cart  *models.Cart
	Token string
	Items []models.CartItem
}

// SaveItemInput is an item added to a cart.
type SaveItemInput struct {
	CartID          uuid.UUID
	ProductID       uuid.UUID
	SellerProductID *uuid.UUID
	Variants        map[string]string
	Quantity        int
	Price           float64
	Title           string
	Image           *string
}

// Service exposes cart operations.
type Service interface {
	EnsureCart(ctx context.Context, owner Owner) (*CartView, error)
	SaveItem(ctx context.Context, input SaveItemInput) (*models.CartItem, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	MergeAnonymous(ctx context.Context, token string, userID uuid.UUID) (int, error)
}

type service struct {
	repo CartRepository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg, now: time.Now}, nil
}

// EnsureCart returns the owner's cart, creating it on first use. Anonymous
// callers without a known token get a fresh cart and token.
func (s *service) EnsureCart(ctx context.Context, owner Owner) (*CartView, error) {
	if owner.UserID != nil && *owner.UserID != uuid.Nil {
		cart, err := s.userCart(ctx, s.repo, *owner.UserID)
		if err != nil {
			return nil, err
		}
		return s.view(ctx, cart, "")
	}

	token := strings.TrimSpace(owner.Token)
	if token != "" {
		cart, err := s.repo.FindByToken(ctx, token)
		if err == nil {
			return s.view(ctx, cart, token)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
	}

	fresh, err := security.NewOpaqueToken(anonymousTokenBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate cart token")
	}
	cart, err := s.repo.Create(ctx, &models.Cart{AnonymousToken: &fresh})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return &CartView{Cart: cart, Token: fresh, Items: []models.CartItem{}}, nil
}

func (s *service) view(ctx context.Context, cart *models.Cart, token string) (*CartView, error) {
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return &CartView{Cart: cart, Token: token, Items: items}, nil
}

// userCart loads or creates the user's cart. A concurrent creator wins the
// unique index and the loser re-reads its row.
func (s *service) userCart(ctx context.Context, repo CartRepository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	uid := userID
	cart, err = repo.Create(ctx, &models.Cart{UserID: &uid})
	if err == nil {
		return cart, nil
	}
	if db.IsUniqueViolation(err, "") {
		if existing, findErr := repo.FindByUser(ctx, userID); findErr == nil {
			return existing, nil
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
}

func (s *service) SaveItem(ctx context.Context, input SaveItemInput) (*models.CartItem, error) {
	if err := validateItem(input); err != nil {
		return nil, err
	}
	var saved *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, input.CartID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		item, err := s.saveLine(ctx, repo, input)
		if err != nil {
			return err
		}
		saved = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// saveLine merges the input into its matching line or inserts a new one.
func (s *service) saveLine(ctx context.Context, repo CartRepository, input SaveItemInput) (*models.CartItem, error) {
	candidates, err := repo.ItemsForProduct(ctx, input.CartID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	matches := matchingLines(candidates, input.SellerProductID, input.Variants)

	if len(matches) == 0 {
		item, err := repo.CreateItem(ctx, &models.CartItem{
			CartID:          input.CartID,
			ProductID:       input.ProductID,
			SellerProductID: input.SellerProductID,
			Variants:        variantsOrEmpty(input.Variants),
			Quantity:        input.Quantity,
			Price:           input.Price,
			Title:           strings.TrimSpace(input.Title),
			Image:           input.Image,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
		}
		return item, nil
	}

	if len(matches) > 1 {
		logCtx := s.logg.WithEvent(ctx, EventDuplicateLines)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"cart_id":    input.CartID.String(),
			"product_id": input.ProductID.String(),
			"matches":    len(matches),
		})
		s.logg.Warn(logCtx, "cart holds duplicate lines; updating the first")
	}

	line := matches[0]
	line.Quantity += input.Quantity
	line.Price = input.Price
	line.Title = strings.TrimSpace(input.Title)
	line.Image = input.Image
	line.Variants = variantsOrEmpty(input.Variants)
	line.UpdatedAt = s.now()
	updated, err := repo.UpdateItem(ctx, &line)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return updated, nil
}

func (s *service) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return items, nil
}

func (s *service) UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	if cartID == uuid.Nil || itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id and item id are required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	affected, err := s.repo.UpdateQuantity(ctx, cartID, itemID, quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	if cartID == uuid.Nil || itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id and item id are required")
	}
	affected, err := s.repo.DeleteItem(ctx, cartID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

// MergeAnonymous folds an anonymous cart into the user's cart and deletes it.
// It returns how many anonymous lines were merged.
func (s *service) MergeAnonymous(ctx context.Context, token string, userID uuid.UUID) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	merged := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		anon, err := repo.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load anonymous cart")
		}
		target, err := s.userCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, anon.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list anonymous cart")
		}
		for _, item := range items {
			_, err := s.saveLine(ctx, repo, SaveItemInput{
				CartID:          target.ID,
				ProductID:       item.ProductID,
				SellerProductID: item.SellerProductID,
				Variants:        item.Variants,
				Quantity:        item.Quantity,
				Price:           item.Price,
				Title:           item.Title,
				Image:           item.Image,
			})
			if err != nil {
				return err
			}
			merged++
		}
		if err := repo.DeleteItems(ctx, anon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear anonymous cart")
		}
		if err := repo.Delete(ctx, anon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete anonymous cart")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return merged, nil
}

// variantsOrEmpty copies the variants; an absent set is stored as {}.
func variantsOrEmpty(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return maps.Clone(in)
}

func validateItem(input SaveItemInput) error {
	switch {
	case input.CartID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	case input.ProductID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	case input.Quantity <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	case input.Price < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	case strings.TrimSpace(input.Title) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	return nil
}
