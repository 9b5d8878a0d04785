package controllers

import (
	"net/http"
	"strconv"
	"time"

	"insulinai-backend/services"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	reports   *services.ReportService
	favorites *services.FavoritesService
}

func NewReportController(reports *services.ReportService, favorites *services.FavoritesService) *ReportController {
	return &ReportController{reports: reports, favorites: favorites}
}

func (rc *ReportController) Report(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	report, err := rc.reports.Build(user, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (rc *ReportController) Favorites(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	favorites, err := rc.favorites.Suggest(user.ID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}
