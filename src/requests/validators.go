package requests

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"clinic-ops/src/services"
)

// RegisterValidators installs the custom binding tags on gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("barcode", func(fl validator.FieldLevel) bool {
		return services.ValidBarcode(fl.Field().String())
	})
}
