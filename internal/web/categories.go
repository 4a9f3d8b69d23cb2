package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Category is one storefront navigation entry. The slugs mirror the
// upstream catalog's category pages.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var storefrontCategories = []Category{
	{ID: "1", Name: "Recommended", Slug: "recommendation"},
	{ID: "2", Name: "Events", Slug: "event"},
	{ID: "3", Name: "Computers & IT", Slug: "view-category-300"},
	{ID: "4", Name: "Self-Development", Slug: "view-category-400"},
	{ID: "5", Name: "Business & Economics", Slug: "view-category-500"},
	{ID: "6", Name: "Fiction", Slug: "view-category-600"},
	{ID: "7", Name: "Humanities & History", Slug: "view-category-700"},
}

// HandleListCategories serves the static category list.
func HandleListCategories() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, storefrontCategories)
	}
}
