// Package web 提供内嵌的单页 UI
package web

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var staticFS embed.FS

// Index 返回首页
func Index(c *gin.Context) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "index page is missing")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
