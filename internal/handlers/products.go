package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopmate/backend/internal/services"
	"github.com/shopmate/backend/internal/store"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	DB     *sql.DB
	Images services.ImageStore
	Ranker services.Ranker
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		respondError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// productForm reads the multipart fields shared by create and update.
func productForm(c *gin.Context) (name, description, category string, price decimal.Decimal, stock int, ok bool) {
	name = strings.TrimSpace(c.PostForm("name"))
	description = strings.TrimSpace(c.PostForm("description"))
	category = strings.TrimSpace(c.PostForm("category"))
	priceStr := c.PostForm("price")
	stockStr := c.PostForm("stock")

	if name == "" || description == "" || category == "" || priceStr == "" || stockStr == "" {
		respondError(c, http.StatusBadRequest, "please provide all required fields")
		return
	}

	var err error
	price, err = decimal.NewFromString(priceStr)
	if err != nil || price.IsNegative() {
		respondError(c, http.StatusBadRequest, "invalid price")
		return
	}

	stock, err = strconv.Atoi(stockStr)
	if err != nil || stock < 0 {
		respondError(c, http.StatusBadRequest, "invalid stock")
		return
	}

	ok = true
	return
}

func (h *ProductHandler) Create(c *gin.Context) {
	name, description, category, price, stock, ok := productForm(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	images := models.ImageList{}
	if form, err := c.MultipartForm(); err == nil {
		for _, file := range form.File["images"] {
			src, err := file.Open()
			if err != nil {
				handleError(c, err)
				return
			}

			uploaded, err := h.Images.Upload(ctx, file.Filename, src)
			src.Close()
			if err != nil {
				handleError(c, err)
				return
			}
			images = append(images, uploaded)
		}
	}

	product, err := store.CreateProduct(ctx, h.DB, store.ProductParams{
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Stock:       stock,
		Images:      images,
		CreatedBy:   currentUser(c).ID,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusCreated, "product created successfully", gin.H{"product": product})
}

func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := paramID(c, "productID")
	if !ok {
		return
	}

	name, description, category, price, stock, ok := productForm(c)
	if !ok {
		return
	}

	product, err := store.UpdateProduct(c.Request.Context(), h.DB, productID, name, description, price, category, stock)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "product updated", gin.H{"product": product})
}

func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := paramID(c, "productID")
	if !ok {
		return
	}

	ctx := c.Request.Context()

	product, err := store.DeleteProduct(ctx, h.DB, productID)
	if err != nil {
		handleError(c, err)
		return
	}

	// Hosted assets are released after the row is gone; a failed destroy
	// only leaves an orphaned asset, never a dangling product.
	for _, image := range product.Images {
		if image.AssetID == "" {
			continue
		}
		if err := h.Images.Destroy(ctx, image.AssetID); err != nil {
			respondError(c, http.StatusInternalServerError, "product deleted but image cleanup failed")
			return
		}
	}

	respond(c, http.StatusOK, "product deleted", nil)
}

func (h *ProductHandler) List(c *gin.Context) {
	filter := store.ProductFilter{
		Availability: c.Query("availability"),
		Category:     c.Query("category"),
		Search:       c.Query("search"),
	}

	if price := c.Query("price"); price != "" {
		parts := strings.SplitN(price, "-", 2)
		if len(parts) == 2 {
			min, errMin := decimal.NewFromString(parts[0])
			max, errMax := decimal.NewFromString(parts[1])
			if errMin == nil && errMax == nil {
				filter.PriceMin = &min
				filter.PriceMax = &max
			}
		}
	}

	if ratings := c.Query("ratings"); ratings != "" {
		if min, err := decimal.NewFromString(ratings); err == nil {
			filter.MinRating = &min
		}
	}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	} else {
		filter.Page = 1
	}

	listing, err := store.ListProducts(c.Request.Context(), h.DB, filter)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "products fetched", gin.H{
		"products":         listing.Products,
		"totalProducts":    listing.TotalProducts,
		"newProducts":      listing.NewProducts,
		"topRatedProducts": listing.TopRatedProducts,
	})
}

func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := paramID(c, "productID")
	if !ok {
		return
	}

	product, reviews, err := store.GetProductDetail(c.Request.Context(), h.DB, productID)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "product fetched", gin.H{
		"product": product,
		"reviews": reviews,
	})
}

func (h *ProductHandler) PostReview(c *gin.Context) {
	productID, ok := paramID(c, "productID")
	if !ok {
		return
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 || req.Comment == "" {
		respondError(c, http.StatusBadRequest, "please provide a rating between 1 and 5 and a comment")
		return
	}

	review, product, created, err := store.UpsertReview(c.Request.Context(), h.DB, productID, currentUser(c).ID, req.Rating, req.Comment)
	if err != nil {
		handleError(c, err)
		return
	}

	message := "review updated"
	if created {
		message = "review posted"
	}
	respond(c, http.StatusOK, message, gin.H{
		"review":  review,
		"product": product,
	})
}

func (h *ProductHandler) DeleteReview(c *gin.Context) {
	productID, ok := paramID(c, "productID")
	if !ok {
		return
	}

	review, product, err := store.DeleteReview(c.Request.Context(), h.DB, productID, currentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "review deleted", gin.H{
		"review":  review,
		"product": product,
	})
}

func (h *ProductHandler) AISearch(c *gin.Context) {
	var req struct {
		UserPrompt string `json:"userPrompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserPrompt) == "" {
		respondError(c, http.StatusBadRequest, "please provide a valid prompt")
		return
	}

	ctx := c.Request.Context()

	keywords := services.ExtractKeywords(req.UserPrompt)
	candidates, err := store.SearchCandidates(ctx, h.DB, keywords)
	if err != nil {
		handleError(c, err)
		return
	}

	// Nothing matched the keyword pre-filter; skip the external call.
	if len(candidates) == 0 {
		respond(c, http.StatusOK, "no products found matching your prompt", gin.H{
			"products": []models.Product{},
		})
		return
	}

	ranked, err := h.Ranker.Rank(ctx, req.UserPrompt, candidates)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "ai filtered products fetched", gin.H{"products": ranked})
}
