package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gmarches/s3catalog/internal/api/handlers"
	"github.com/gmarches/s3catalog/internal/api/middleware"
	"github.com/gmarches/s3catalog/internal/service"
	"github.com/gmarches/s3catalog/internal/transform"
)

// Services carries the constructed components the router dispatches to.
type Services struct {
	Scanner   *service.Scanner
	Directory *service.Directory
	Grantor   *service.Grantor

	ExcelConverter *transform.ExcelConverter
	ZipExtractor   *transform.ZipExtractor
	CSVLoader      *transform.CSVLoader
	SFTPSender     *transform.SFTPSender
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origins, allowAll := normalizeAllowedOrigins(allowedOrigins)
	if allowAll || len(origins) == 0 {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		corsConfig.AllowOrigins = origins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		catalogHandler := handlers.NewCatalogHandler(services.Scanner, services.Directory, services.Grantor)
		apiGroup.GET("/files", catalogHandler.ListFiles)
		apiGroup.GET("/files/search", catalogHandler.SearchFiles)
		apiGroup.POST("/presign", catalogHandler.PresignUpload)
		apiGroup.POST("/scan", catalogHandler.TriggerScan)

		transformHandler := handlers.NewTransformHandler(
			services.ExcelConverter,
			services.ZipExtractor,
			services.CSVLoader,
			services.SFTPSender,
		)
		apiGroup.POST("/convert/excel", transformHandler.ConvertExcel)
		apiGroup.POST("/extract", transformHandler.ExtractZip)
		apiGroup.POST("/load", transformHandler.LoadCSV)
		apiGroup.POST("/transfer", transformHandler.Transfer)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
