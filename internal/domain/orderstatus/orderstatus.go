// Package orderstatus описывает допустимые переходы статусов заказа
package orderstatus

import "github.com/matintgp/ecommerce-proj/internal/domain/models"

var transitions = map[string][]string{
	models.OrderStatusPending: {
		models.OrderStatusProcessing,
		models.OrderStatusCancelled,
		models.OrderStatusRefunded,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusShipped,
		models.OrderStatusCancelled,
		models.OrderStatusRefunded,
	},
	models.OrderStatusShipped: {
		models.OrderStatusDelivered,
	},
}

// Known - известен ли статус
func Known(status string) bool {
	switch status {
	case models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransition проверяет, разрешён ли переход from -> to
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal - delivered, cancelled и refunded
func IsTerminal(status string) bool {
	return Known(status) && len(transitions[status]) == 0
}

// CanCancel - отмена возможна только из pending и processing
func CanCancel(status string) bool {
	return CanTransition(status, models.OrderStatusCancelled)
}

// CanAcceptPayment - оплата принимается, пока платёж в ожидании и заказ не закрыт
func CanAcceptPayment(o *models.Order) bool {
	if o.PaymentStatus != models.PaymentStatusPending {
		return false
	}
	return o.Status == models.OrderStatusPending || o.Status == models.OrderStatusProcessing
}
