package handler

import (
	"errors"
	"net/http"
	"reflect"

	"queuedesk/internal/apierror"
	"queuedesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// statusByCode maps stable domain error codes onto HTTP statuses. Anything not
// in the map is an unexpected failure and goes through the ErrorHandler
// middleware as a generic 500.
var statusByCode = map[string]int{
	apierror.CodeInvalidTransition:   http.StatusConflict,
	apierror.CodeCounterBusy:         http.StatusConflict,
	apierror.CodeInvalidReorderSet:   http.StatusConflict,
	apierror.CodeInvalidAmount:       http.StatusBadRequest,
	apierror.CodeOverpayment:         http.StatusConflict,
	apierror.CodeTransactionNotFound: http.StatusNotFound,
	apierror.CodeEntityNotFound:      http.StatusNotFound,
	apierror.CodeBusy:                http.StatusConflict,
	apierror.CodeResetAlreadyRan:     http.StatusConflict,
	apierror.CodeResetFailed:         http.StatusInternalServerError,
}

// respondServiceError writes the domain error envelope, or defers to the
// ErrorHandler middleware for anything that is not a domain error.
func respondServiceError(c *gin.Context, err error) {
	var derr *service.DomainError
	if errors.As(err, &derr) {
		status, ok := statusByCode[derr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		c.JSON(status, apierror.New(derr.Code, derr.Message))
		return
	}
	_ = c.Error(err)
}

