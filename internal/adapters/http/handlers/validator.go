// Package handlers содержит HTTP handlers для REST API.
//
// Handler - это Adapter в терминах Clean Architecture:
// - Принимает HTTP запрос
// - Преобразует в Command/Query DTO
// - Вызывает Use Case
// - Преобразует результат в HTTP ответ
//
// SOLID:
// - SRP: Каждый handler отвечает за один ресурс
// - DIP: Handler зависит от интерфейса Use Case
package handlers

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Haleralex/ledgerhub/internal/adapters/http/common"
)

// ============================================
// Custom Validator Setup
// ============================================

var (
	setupOnce sync.Once
)

// SetupValidator настраивает кастомные валидаторы для Gin.
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			// Используем json tag для имён полей в ошибках
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})

			// Регистрируем кастомные валидаторы
			_ = v.RegisterValidation("money_amount", validateMoneyAmount)
			_ = v.RegisterValidation("account_amount", validateAccountAmount)
			_ = v.RegisterValidation("iso_date", validateISODate)
		}
	})
}

// ============================================
// Custom Validators
// ============================================

// validateMoneyAmount проверяет формат суммы перевода: неотрицательный
// decimal с максимум двумя знаками после точки ("100", "100.5", "100.50").
var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

func validateMoneyAmount(fl validator.FieldLevel) bool {
	return moneyPattern.MatchString(fl.Field().String())
}

// validateAccountAmount проверяет формат баланса процентного счёта:
// до восьми знаков после точки ("10000", "10000.00000000").
var accountAmountPattern = regexp.MustCompile(`^\d+(\.\d{1,8})?$`)

func validateAccountAmount(fl validator.FieldLevel) bool {
	return accountAmountPattern.MatchString(fl.Field().String())
}

// validateISODate проверяет календарную дату формата "2006-01-02".
// time.Parse отбивает и формат, и несуществующие даты вроде 2023-02-30.
func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// ============================================
// Validation Error Handling
// ============================================

// HandleValidationErrors преобразует ошибки валидации в HTTP ответ.
func HandleValidationErrors(c *gin.Context, err error) {
	var fieldErrors []common.FieldError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErrors {
			fieldErrors = append(fieldErrors, common.FieldError{
				Field:   fieldErr.Field(),
				Message: getValidationMessage(fieldErr),
				Code:    fieldErr.Tag(),
			})
		}
	}

	if len(fieldErrors) == 0 {
		// Если не удалось распарсить - общая ошибка
		common.BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	common.ValidationErrorResponse(c, fieldErrors)
}

// getValidationMessage возвращает человекочитаемое сообщение об ошибке.
func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "min":
		return "Value is too short (minimum: " + fe.Param() + ")"
	case "max":
		return "Value is too long (maximum: " + fe.Param() + ")"
	case "oneof":
		return "Value must be one of: " + fe.Param()
	case "money_amount":
		return "Invalid amount format (use decimal like '100.50', max 2 decimal places)"
	case "account_amount":
		return "Invalid amount format (use decimal like '10000.00000000', max 8 decimal places)"
	case "iso_date":
		return "Invalid date (use ISO format like '2023-06-15')"
	default:
		return "Invalid value"
	}
}

// ============================================
// Request Parsing Helpers
// ============================================

// BindJSON биндит JSON тело запроса и возвращает ошибку если что-то не так.
// Возвращает true если успешно, false если была ошибка (ответ уже отправлен).
func BindJSON[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindQuery биндит query параметры.
func BindQuery[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindURI биндит URI параметры.
func BindURI[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindUri(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// ============================================
// Pagination Helper
// ============================================

// PaginationParams - offset/limit из query string.
type PaginationParams struct {
	Offset int
	Limit  int
}

// ParsePagination парсит offset/limit из запроса. Значения вне допустимого
// диапазона молча заменяются на defaults: list-endpoints не падают из-за
// кривой пагинации.
func ParsePagination(c *gin.Context, defaultLimit int) PaginationParams {
	params := PaginationParams{Offset: 0, Limit: defaultLimit}

	if offset := c.Query("offset"); offset != "" {
		if v, ok := parseInt(offset); ok {
			params.Offset = v
		}
	}

	if limit := c.Query("limit"); limit != "" {
		if v, ok := parseInt(limit); ok && v > 0 && v <= 100 {
			params.Limit = v
		}
	}

	return params
}

// parseInt парсит неотрицательное десятичное число.
func parseInt(s string) (int, bool) {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// BuildMeta создаёт мета-информацию для пагинированного ответа.
func BuildMeta(params PaginationParams, count int) *common.APIMeta {
	return &common.APIMeta{
		Offset: params.Offset,
		Limit:  params.Limit,
		Count:  count,
	}
}
