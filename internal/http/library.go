package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/database/books"
)

// LibraryController serves the public reading library.
type LibraryController struct {
	library LibraryReader
}

func NewLibraryController(library LibraryReader) *LibraryController {
	return &LibraryController{library: library}
}

// List returns published books
// GET /api/library?language=es&category=animals&q=river&page=1&page_size=20
func (lc *LibraryController) List(c *gin.Context) {
	page, pageSize := parsePage(c, books.DefaultPageSize, books.MaxPageSize)
	filter := books.Filter{
		Language: c.Query("language"),
		Category: c.Query("category"),
		Search:   c.Query("q"),
		Page:     page,
		PageSize: pageSize,
	}

	list, total, err := lc.library.List(filter)
	if err != nil {
		respondInternalError(c, err, "list library")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(list, total, page, pageSize))
}

// Get returns a published book and counts the view
// GET /api/library/:id
func (lc *LibraryController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := lc.library.Get(id)
	if err != nil {
		respondServiceError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Translations lists the published translations of a book
// GET /api/library/:id/translations
func (lc *LibraryController) Translations(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	list, err := lc.library.Translations(id)
	if err != nil {
		respondServiceError(c, err, "list translations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"translations": list})
}
