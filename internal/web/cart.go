package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/bookstore/internal/authkit"
	"github.com/tyemirov/bookstore/internal/store"
)

// CartStore is the slice of storage the cart handlers need.
type CartStore interface {
	FindBookByISBN(ctx context.Context, isbn string) (store.Book, error)
	CreateBook(ctx context.Context, book store.Book) (store.Book, error)
	AddCartItem(ctx context.Context, userID uint64, bookID uint64, quantity int) (store.CartItem, error)
	ListCartItems(ctx context.Context, userID uint64) ([]store.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, userID uint64, itemID uint64, quantity int) (store.CartItem, error)
	DeleteCartItem(ctx context.Context, userID uint64, itemID uint64) error
	ClearCart(ctx context.Context, userID uint64) error
}

// BookResolver fetches book details for an unknown ISBN.
type BookResolver interface {
	SearchByISBN(ctx context.Context, isbn string) (store.Book, error)
}

// MountCartRoutes registers the cart CRUD under the session guard.
func MountCartRoutes(router gin.IRouter, carts CartStore, books BookResolver, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	router.POST("/cart", handleAddToCart(carts, books, logger))
	router.GET("/cart", handleGetCart(carts, logger))
	router.PUT("/cart/:id", handleUpdateCartItem(carts))
	router.DELETE("/cart/:id", handleRemoveCartItem(carts))
	router.DELETE("/cart", handleClearCart(carts))
}

func handleAddToCart(carts CartStore, books BookResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		principal, found := authkit.PrincipalFromContext(contextGin)
		if !found {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var inbound struct {
			ISBN     string `json:"isbn"`
			Quantity int    `json:"quantity"`
		}
		if err := contextGin.BindJSON(&inbound); err != nil || inbound.ISBN == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		if inbound.Quantity < 1 {
			inbound.Quantity = 1
		}

		book, findErr := carts.FindBookByISBN(contextGin.Request.Context(), inbound.ISBN)
		if findErr != nil {
			if !errors.Is(findErr, store.ErrBookNotFound) {
				contextGin.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			fetched, fetchErr := books.SearchByISBN(contextGin.Request.Context(), inbound.ISBN)
			if fetchErr != nil {
				if errors.Is(fetchErr, ErrSearchNoMatch) {
					contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "book_not_found"})
					return
				}
				logger.Warn("book lookup failed",
					zap.String("code", "cart.book_lookup_failed"),
					zap.String("isbn", inbound.ISBN),
					zap.Error(fetchErr))
				contextGin.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
				return
			}
			created, createErr := carts.CreateBook(contextGin.Request.Context(), fetched)
			if createErr != nil {
				contextGin.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			book = created
		}

		item, addErr := carts.AddCartItem(contextGin.Request.Context(), principal.SubjectID, book.ID, inbound.Quantity)
		if addErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusCreated, item)
	}
}

func handleGetCart(carts CartStore, logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		principal, found := authkit.PrincipalFromContext(contextGin)
		if !found {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		items, listErr := carts.ListCartItems(contextGin.Request.Context(), principal.SubjectID)
		if listErr != nil {
			logger.Error("cart listing failed",
				zap.String("code", "cart.list_failed"),
				zap.Uint64("user_id", principal.SubjectID),
				zap.Error(listErr))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, items)
	}
}

func handleUpdateCartItem(carts CartStore) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		principal, found := authkit.PrincipalFromContext(contextGin)
		if !found {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		itemID, idErr := strconv.ParseUint(contextGin.Param("id"), 10, 64)
		if idErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
			return
		}
		var inbound struct {
			Quantity int `json:"quantity"`
		}
		if err := contextGin.BindJSON(&inbound); err != nil || inbound.Quantity < 1 {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_quantity"})
			return
		}
		item, updateErr := carts.UpdateCartItemQuantity(contextGin.Request.Context(), principal.SubjectID, itemID, inbound.Quantity)
		if updateErr != nil {
			if errors.Is(updateErr, store.ErrCartItemNotFound) {
				contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "cart_item_not_found"})
				return
			}
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, item)
	}
}

func handleRemoveCartItem(carts CartStore) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		principal, found := authkit.PrincipalFromContext(contextGin)
		if !found {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		itemID, idErr := strconv.ParseUint(contextGin.Param("id"), 10, 64)
		if idErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
			return
		}
		if deleteErr := carts.DeleteCartItem(contextGin.Request.Context(), principal.SubjectID, itemID); deleteErr != nil {
			if errors.Is(deleteErr, store.ErrCartItemNotFound) {
				contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "cart_item_not_found"})
				return
			}
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.Status(http.StatusNoContent)
	}
}

func handleClearCart(carts CartStore) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		principal, found := authkit.PrincipalFromContext(contextGin)
		if !found {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if clearErr := carts.ClearCart(contextGin.Request.Context(), principal.SubjectID); clearErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.Status(http.StatusNoContent)
	}
}
