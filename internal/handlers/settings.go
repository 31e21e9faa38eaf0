package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type pageSettingsRequest struct {
	HeroTitle        string `json:"heroTitle"`
	HeroImagePath    string `json:"heroImagePath"`
	Announcement     string `json:"announcement"`
	FeaturedCategory string `json:"featuredCategory"`
}

// GetPageSettings serves the storefront configuration for one page.
// Missing pages come back as an empty settings object so the frontend
// never special-cases first deploys.
func GetPageSettings(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /pages/:page/settings"
		defer handlePanic(c, route)

		page := strings.TrimSpace(c.Param("page"))
		if page == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid page")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var settings models.PageSettings
		err := db.Collection("page_settings").FindOne(ctx, bson.M{"page": page}).Decode(&settings)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusOK, models.PageSettings{Page: page})
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, settings)
	}
}

// UpsertPageSettings replaces the settings document for one page.
func UpsertPageSettings(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/pages/:page/settings"
		defer handlePanic(c, route)

		page := strings.TrimSpace(c.Param("page"))
		if page == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid page")
			return
		}

		var req pageSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		settings := models.PageSettings{
			Page:             page,
			HeroTitle:        strings.TrimSpace(req.HeroTitle),
			HeroImagePath:    strings.TrimSpace(req.HeroImagePath),
			Announcement:     strings.TrimSpace(req.Announcement),
			FeaturedCategory: strings.TrimSpace(req.FeaturedCategory),
			UpdatedAt:        time.Now(),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Replace().SetUpsert(true)
		_, err := db.Collection("page_settings").ReplaceOne(ctx, bson.M{"page": page}, settings, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[SETTINGS] [INFO] page settings updated:", page)
		c.JSON(http.StatusOK, settings)
	}
}
