package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the selection and report endpoints on an API version group.
func RegisterRoutes(v1 *gin.RouterGroup, selections *SelectionHandler, reports *ReportHandler) {
	sel := v1.Group("/selections")
	{
		sel.POST("", selections.Select)
		sel.GET("", selections.List)
		sel.DELETE("", selections.Clear)
		sel.DELETE("/:index", selections.Remove)
	}

	v1.GET("/boroughs", reports.Boroughs)
	v1.GET("/letters/:kind", reports.Letters)

	exports := v1.Group("/exports")
	{
		exports.GET("/table", reports.Table)
		exports.GET("/shapefile", reports.Shapefile)
		exports.GET("/geojson", reports.GeoJSON)
	}
}
