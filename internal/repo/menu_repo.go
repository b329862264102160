package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// ListAvailableMenuItems returns every orderable item, ordered by category
// then name for stable menu rendering.
func ListAvailableMenuItems(ctx context.Context, db *gorm.DB) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	err := db.WithContext(ctx).
		Where("is_available = ?", true).
		Order("category asc, name asc").
		Find(&out).Error
	return out, err
}

// GetMenuItem fetches a menu item by ID, or ErrNotFound.
func GetMenuItem(ctx context.Context, db *gorm.DB, id string) (*domain.MenuItem, error) {
	var m domain.MenuItem
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMenuItems returns the catalog size, available or not.
func CountMenuItems(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.MenuItem{}).Count(&total).Error
	return total, err
}

type seedItem struct {
	name, arabic, desc string
	price              float64
	category, brand    string
}

var defaultMenu = []seedItem{
	{"Classic Burger", "برجر كلاسيكي", "100% beef patty with lettuce, tomato, onion", 8.99, "Burgers", "Burger Hub"},
	{"Cheeseburger", "برجر بالجبنة", "Classic burger with cheddar cheese", 9.99, "Burgers", "Burger Hub"},
	{"Double Cheeseburger", "برجر دبل تشيز", "Double beef patty with double cheese", 12.99, "Burgers", "Burger Hub"},
	{"Triple Cheeseburger", "برجر تربل تشيز", "Triple beef patty with triple cheese", 15.99, "Burgers", "Burger Hub"},
	{"Veggie Burger", "برجر نباتي", "Plant-based patty with fresh vegetables", 9.49, "Burgers", "Burger Hub"},
	{"Bacon Burger", "برجر بيكون", "Double patty with crispy bacon", 12.99, "Burgers", "Burger Hub"},
	{"Chicken Burger", "برجر دجاج", "Crispy chicken with special sauce", 10.99, "Burgers", "Burger Hub"},
	{"BBQ Burger", "برجر باربيكيو", "Burger with BBQ sauce and onion rings", 11.99, "Burgers", "Burger Hub"},
	{"Fries", "بطاطس مقلية", "Golden crispy french fries", 3.99, "Sides", "Burger Hub"},
	{"Onion Rings", "حلقات البصل", "Beer-battered onion rings", 4.49, "Sides", "Burger Hub"},
	{"Coca Cola", "كوكاكولا", "Classic Coca Cola soft drink", 1.99, "Beverages", "Burger Hub"},
	{"Pepsi", "بيبسي", "Pepsi soft drink", 1.99, "Beverages", "Burger Hub"},
	{"7UP", "سفن اب", "Lemon-lime flavored soft drink", 1.99, "Beverages", "Burger Hub"},
	{"Sprite", "سبرايت", "Lemon-lime soda", 1.99, "Beverages", "Burger Hub"},
	{"Fanta Orange", "فانتا برتقال", "Orange flavored soft drink", 1.99, "Beverages", "Burger Hub"},
	{"Water", "ماء", "Bottled water", 0.99, "Beverages", "Burger Hub"},
	{"Milkshake Vanilla", "ميلك شيك فانيليا", "Creamy vanilla milkshake", 4.99, "Beverages", "Burger Hub"},
	{"Milkshake Chocolate", "ميلك شيك شوكولاتة", "Rich chocolate milkshake", 4.99, "Beverages", "Burger Hub"},
	{"Milkshake Strawberry", "ميلك شيك فراولة", "Fresh strawberry milkshake", 4.99, "Beverages", "Burger Hub"},
	{"Brownie", "براوني", "Chocolate fudge brownie", 3.99, "Desserts", "Burger Hub"},
	{"Margherita Pizza", "بيتزا مارجريتا", "Fresh mozzarella, basil, tomato sauce", 12.99, "Pizza", "Pizza Palace"},
	{"Pepperoni Pizza", "بيتزا ببروني", "Classic pepperoni with mozzarella", 14.99, "Pizza", "Pizza Palace"},
	{"Veggie Pizza", "بيتزا نباتية", "Mushrooms, peppers, onions, olives", 13.99, "Pizza", "Pizza Palace"},
	{"BBQ Chicken Pizza", "بيتزا دجاج باربيكيو", "BBQ sauce, chicken, red onions", 15.99, "Pizza", "Pizza Palace"},
	{"Garlic Bread", "خبز بالثوم", "Toasted bread with garlic butter", 4.99, "Sides", "Pizza Palace"},
	{"Wings", "أجنحة دجاج", "Buffalo chicken wings", 8.99, "Sides", "Pizza Palace"},
	{"Salad", "سلطة", "Fresh garden salad", 6.99, "Sides", "Pizza Palace"},
	{"Tiramisu", "تيراميسو", "Italian coffee-flavored dessert", 5.99, "Desserts", "Pizza Palace"},
}

// SeedDefaultMenu inserts the built-in catalog when the table is empty, so a
// fresh database is immediately orderable. It is a no-op otherwise.
func SeedDefaultMenu(ctx context.Context, db *gorm.DB) (int64, error) {
	total, err := CountMenuItems(ctx, db)
	if err != nil || total > 0 {
		return 0, err
	}
	now := time.Now().UTC()
	items := make([]domain.MenuItem, 0, len(defaultMenu))
	for _, s := range defaultMenu {
		items = append(items, domain.MenuItem{
			ID:          uuid.NewString(),
			Name:        s.name,
			ArabicName:  s.arabic,
			Description: s.desc,
			Price:       s.price,
			Category:    s.category,
			IsAvailable: true,
			Brand:       s.brand,
			CreatedAt:   now,
		})
	}
	if err := db.WithContext(ctx).Create(&items).Error; err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}
