// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"creatorx/internal/market"
	"creatorx/internal/models"
)

// sourceTagRegex matches reward collaborator tags such as "weekly_reward" or
// "ads.q3".
var sourceTagRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.:-]{0,63}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("trade_side", validateTradeSide)
	_ = v.RegisterValidation("stock_tier", validateStockTier)
	_ = v.RegisterValidation("source_tag", validateSourceTag)
}

func validateTradeSide(fl validator.FieldLevel) bool {
	switch models.TradeSide(fl.Field().String()) {
	case models.TradeSideBuy, models.TradeSideSell:
		return true
	}
	return false
}

func validateStockTier(fl validator.FieldLevel) bool {
	_, err := market.ParseTier(fl.Field().String())
	return err == nil
}

func validateSourceTag(fl validator.FieldLevel) bool {
	return sourceTagRegex.MatchString(fl.Field().String())
}
