package service

import "time"

func SetCheckoutClock(s *CheckoutService, now func() time.Time) { s.now = now }

func SetOrderNumberGenerator(s *CheckoutService, gen func() (string, error)) { s.newOrderNumber = gen }

func SetOrderClock(s *OrderService, now func() time.Time) { s.now = now }

func SetTicketClock(s *TicketService, now func() time.Time) { s.now = now }
