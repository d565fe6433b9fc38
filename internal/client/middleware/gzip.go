package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

var (
	gzipExcludedPaths = []string{
		"/health",
	}
	gzipExcludedExtensions = []string{
		".png", ".gif", ".jpeg", ".jpg", ".mp4", ".mp3", ".pdf", ".zip", ".gz",
	}
)

func Gzip() gin.HandlerFunc {
	return gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths(gzipExcludedPaths),
		gzip.WithExcludedExtensions(gzipExcludedExtensions),
	)
}
