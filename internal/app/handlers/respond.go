package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/matintgp/ecommerce-proj/internal/jwt-new/jwtmiddleware"
	"github.com/matintgp/ecommerce-proj/internal/service"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

var validate = newValidator()

// newValidator - в сообщениях об ошибках поля называются как в JSON
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest читает JSON тело и проверяет его тегами validate
func decodeRequest(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &service.ValidationError{Message: "invalid request body"}
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &service.ValidationError{Field: fe.Field(), Message: describe(fe)}
		}
		return &service.ValidationError{Message: "invalid request"}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters long"
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	case "len":
		return "must be exactly " + fe.Param() + " characters long"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "numeric":
		return "must contain only digits"
	default:
		return "is invalid"
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func errorBody(code, message string) map[string]any {
	return map[string]any{"error": code, "message": message}
}

// writeError переводит ошибки сервисного слоя в HTTP-ответ.
// Неизвестные ошибки отдаются как 500 без подробностей, подробности только в логе.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validationErr *service.ValidationError
		stockErr      *service.InsufficientStockError
		couponErr     *service.CouponError
	)

	switch {
	case errors.As(err, &validationErr):
		body := errorBody("validation_error", validationErr.Error())
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		writeJSON(w, logger, http.StatusBadRequest, body)
	case errors.As(err, &stockErr):
		body := errorBody("insufficient_stock", fmt.Sprintf("not enough stock for %s", stockErr.ProductName))
		body["product"] = stockErr.ProductName
		body["available"] = stockErr.Available
		body["requested"] = stockErr.Requested
		body["in_cart"] = stockErr.InCart
		writeJSON(w, logger, http.StatusBadRequest, body)
	case errors.As(err, &couponErr):
		writeJSON(w, logger, http.StatusBadRequest, map[string]any{
			"valid":   false,
			"error":   "invalid_coupon",
			"reason":  string(couponErr.Reason),
			"message": couponErr.Reason.Message(),
		})
	case errors.Is(err, service.ErrEmptyCart):
		writeJSON(w, logger, http.StatusBadRequest, errorBody("empty_cart", "cart is empty"))
	case errors.Is(err, service.ErrIllegalTransition):
		writeJSON(w, logger, http.StatusBadRequest, errorBody("illegal_state_transition", err.Error()))
	case errors.Is(err, service.ErrInvalidOTP):
		writeJSON(w, logger, http.StatusBadRequest, errorBody("invalid_otp", service.ErrInvalidOTP.Error()))
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, logger, http.StatusNotFound, errorBody("not_found", "not found"))
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, logger, http.StatusUnauthorized, errorBody("unauthorized", "invalid username or password"))
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(w, logger, http.StatusUnauthorized, errorBody("unauthorized", "authentication required"))
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, logger, http.StatusForbidden, errorBody("forbidden", "you do not have permission to perform this action"))
	case errors.Is(err, storage.ErrLocked):
		writeJSON(w, logger, http.StatusConflict, errorBody("locked", storage.ErrLocked.Error()))
	default:
		logger.Error("internal error", slog.Any("error", err))
		writeJSON(w, logger, http.StatusInternalServerError, errorBody("internal", "internal server error"))
	}
}

// actorFrom - пользователь из контекста, установленного JWT middleware
func actorFrom(r *http.Request) (service.Actor, bool) {
	userID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, IsStaff: jwtmiddleware.IsStaff(r.Context())}, true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}
