package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrBookNotFound indicates no book matched the ISBN.
	ErrBookNotFound = errors.New("store.book_not_found")
	// ErrCartItemNotFound indicates the cart item is missing or owned by another user.
	ErrCartItemNotFound = errors.New("store.cart_item_not_found")
)

// FindBookByISBN returns the cached book row for the ISBN.
func (store *Store) FindBookByISBN(ctx context.Context, isbn string) (Book, error) {
	var book Book
	err := store.db.WithContext(ctx).Where("isbn = ?", isbn).Take(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Book{}, fmt.Errorf("store.find_book.%s: %w", store.driverLabel, ErrBookNotFound)
		}
		return Book{}, fmt.Errorf("store.find_book.%s: %w", store.driverLabel, err)
	}
	return book, nil
}

// CreateBook caches a book row fetched from the upstream search API. A
// concurrent insert of the same ISBN resolves to the existing row.
func (store *Store) CreateBook(ctx context.Context, book Book) (Book, error) {
	if err := store.db.WithContext(ctx).Create(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.FindBookByISBN(ctx, book.ISBN)
		}
		return Book{}, fmt.Errorf("store.create_book.%s: %w", store.driverLabel, err)
	}
	return book, nil
}

// AddCartItem adds a book to the user's cart, incrementing the quantity when
// the book is already in it.
func (store *Store) AddCartItem(ctx context.Context, userID uint64, bookID uint64, quantity int) (CartItem, error) {
	var existing CartItem
	err := store.db.WithContext(ctx).Where("user_id = ? AND book_id = ?", userID, bookID).Take(&existing).Error
	if err == nil {
		existing.Quantity += quantity
		if updateErr := store.db.WithContext(ctx).Model(&CartItem{}).
			Where("id = ?", existing.ID).
			Update("quantity", existing.Quantity).Error; updateErr != nil {
			return CartItem{}, fmt.Errorf("store.add_cart_item.%s: %w", store.driverLabel, updateErr)
		}
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return CartItem{}, fmt.Errorf("store.add_cart_item.%s: %w", store.driverLabel, err)
	}

	item := CartItem{UserID: userID, BookID: bookID, Quantity: quantity}
	if createErr := store.db.WithContext(ctx).Create(&item).Error; createErr != nil {
		return CartItem{}, fmt.Errorf("store.add_cart_item.%s: %w", store.driverLabel, createErr)
	}
	return item, nil
}

// ListCartItems returns the user's cart with book rows attached.
func (store *Store) ListCartItems(ctx context.Context, userID uint64) ([]CartItem, error) {
	var items []CartItem
	err := store.db.WithContext(ctx).Preload("Book").Where("user_id = ?", userID).Order("id").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("store.list_cart_items.%s: %w", store.driverLabel, err)
	}
	return items, nil
}

// UpdateCartItemQuantity sets the quantity of one of the user's cart items.
func (store *Store) UpdateCartItemQuantity(ctx context.Context, userID uint64, itemID uint64, quantity int) (CartItem, error) {
	result := store.db.WithContext(ctx).Model(&CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", quantity)
	if result.Error != nil {
		return CartItem{}, fmt.Errorf("store.update_cart_item.%s: %w", store.driverLabel, result.Error)
	}
	if result.RowsAffected == 0 {
		return CartItem{}, fmt.Errorf("store.update_cart_item.%s: %w", store.driverLabel, ErrCartItemNotFound)
	}
	var item CartItem
	if err := store.db.WithContext(ctx).Take(&item, itemID).Error; err != nil {
		return CartItem{}, fmt.Errorf("store.update_cart_item.%s: %w", store.driverLabel, err)
	}
	return item, nil
}

// DeleteCartItem removes one of the user's cart items.
func (store *Store) DeleteCartItem(ctx context.Context, userID uint64, itemID uint64) error {
	result := store.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&CartItem{})
	if result.Error != nil {
		return fmt.Errorf("store.delete_cart_item.%s: %w", store.driverLabel, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store.delete_cart_item.%s: %w", store.driverLabel, ErrCartItemNotFound)
	}
	return nil
}

// ClearCart removes every cart item belonging to the user.
func (store *Store) ClearCart(ctx context.Context, userID uint64) error {
	if err := store.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("store.clear_cart.%s: %w", store.driverLabel, err)
	}
	return nil
}
