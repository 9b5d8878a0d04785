package controllers

import (
	"net/http"
	"strings"

	"insulinai-backend/services"

	"github.com/gin-gonic/gin"
)

// FoodController exposes raw database lookups for clients that want to
// browse candidates without running the full analysis pipeline.
type FoodController struct {
	off *services.OFFService
}

func NewFoodController(off *services.OFFService) *FoodController {
	return &FoodController{off: off}
}

func (fc *FoodController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q required"})
		return
	}

	candidates, err := fc.off.Search(query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "food database unavailable", "detail": err.Error()})
		return
	}

	scored := services.ScoreCandidates(query, candidates, services.DefaultScoringWeights())
	results := make([]gin.H, 0, len(scored))
	for _, sc := range scored {
		results = append(results, gin.H{
			"name":             sc.Candidate.Name,
			"brand":            sc.Candidate.Brand,
			"carbs_per_100g":   sc.Candidate.CarbsPer100g,
			"fat_per_100g":     sc.Candidate.FatPer100g,
			"protein_per_100g": sc.Candidate.ProteinPer100g,
			"package_quantity": sc.Candidate.PackageQuantity,
			"score":            sc.Score,
		})
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (fc *FoodController) Barcode(c *gin.Context) {
	code := c.Param("code")
	if !services.IsBarcode(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid barcode"})
		return
	}

	candidate, err := fc.off.LookupBarcode(code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "food database unavailable", "detail": err.Error()})
		return
	}
	if candidate == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":             candidate.Name,
		"brand":            candidate.Brand,
		"carbs_per_100g":   candidate.CarbsPer100g,
		"fat_per_100g":     candidate.FatPer100g,
		"protein_per_100g": candidate.ProteinPer100g,
		"package_quantity": candidate.PackageQuantity,
	})
}
