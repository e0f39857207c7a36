package handlers

import "github.com/gin-gonic/gin"

// All endpoints answer in the same envelope:
//
//	{ "success": true,  "data": ..., "message": "..." }
//	{ "success": false, "error": "..." }
//
// so the SPA can handle every response with one code path.

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondMessage(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, gin.H{"success": true, "data": data, "message": message})
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}
