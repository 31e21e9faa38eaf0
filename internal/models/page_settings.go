package models

import "time"

// PageSettings stores per-page storefront configuration (hero banner,
// announcement bar, featured category). Keyed by page name, one document
// per page.
type PageSettings struct {
	Page             string    `bson:"page" json:"page"`
	HeroTitle        string    `bson:"heroTitle,omitempty" json:"heroTitle,omitempty"`
	HeroImagePath    string    `bson:"heroImagePath,omitempty" json:"heroImagePath,omitempty"`
	Announcement     string    `bson:"announcement,omitempty" json:"announcement,omitempty"`
	FeaturedCategory string    `bson:"featuredCategory,omitempty" json:"featuredCategory,omitempty"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}
