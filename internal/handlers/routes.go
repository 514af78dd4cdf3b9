package handlers

import (
	"github.com/gin-gonic/gin"
)

// Routes wires the /api/v1 surface. Every route sits behind Auth.
type Routes struct {
	Auth          gin.HandlerFunc
	Entries       *EntryHandler
	Geocode       *GeocodeHandler
	Notifications *NotificationsHandler
}

func (r Routes) Register(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	v1.Use(r.Auth)

	entries := v1.Group("/entries")
	{
		entries.POST("", r.Entries.CreateEntry)
		entries.GET("", r.Entries.ListEntries)
		entries.GET("/:id", r.Entries.GetEntry)
		entries.PATCH("/:id", r.Entries.UpdateEntry)
		entries.DELETE("/:id", r.Entries.DeleteEntry)
		entries.POST("/:id/media", r.Entries.AddMedia)
		entries.DELETE("/:id/media/:mediaId", r.Entries.RemoveMedia)
		entries.PUT("/:id/preview", r.Entries.SetPreview)
	}

	v1.GET("/tags", r.Entries.GetUniqueTags)
	v1.GET("/locations", r.Entries.GetUniqueLocations)
	v1.GET("/streak", r.Entries.GetStreak)

	prompt := v1.Group("/prompt")
	{
		prompt.GET("", r.Entries.GetPrompt)
		prompt.POST("/complete", r.Entries.CompletePrompt)
		prompt.POST("/current", r.Entries.SetPrompt)
	}

	if r.Geocode != nil {
		geocode := v1.Group("/geocode")
		geocode.GET("/reverse", r.Geocode.Reverse)
		geocode.GET("/search", r.Geocode.Search)
	}

	if r.Notifications != nil {
		v1.POST("/notifications/register", r.Notifications.RegisterPushToken)
	}
}
