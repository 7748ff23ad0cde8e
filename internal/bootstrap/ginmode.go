package bootstrap

import "github.com/gin-gonic/gin"

// SetGinMode maps APP_ENV onto gin's mode; anything unrecognised stays in debug.
func SetGinMode(env string) {
	switch env {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}
}
