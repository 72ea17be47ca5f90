package handlers

import (
	"net/http"

	"ambulance/config"
	"ambulance/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last health snapshot. Any unhealthy dependency
// turns the response into a 503.
func HealthHandler(monitor *utils.HealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if monitor == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "service": config.AppConfig.ServiceName})
			return
		}
		status := monitor.Status()
		code, label := http.StatusOK, "ok"
		for _, up := range status.Services {
			if !up {
				code, label = http.StatusServiceUnavailable, "degraded"
				break
			}
		}
		c.JSON(code, gin.H{
			"status":    label,
			"service":   config.AppConfig.ServiceName,
			"services":  status.Services,
			"checkedAt": status.CheckedAt,
		})
	}
}
