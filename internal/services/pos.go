package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"AwabarTickets/internal/smaregi"
)

type POSRegistrar interface {
	RegisterTransaction(ctx context.Context, tx *smaregi.Transaction) (string, error)
	WaitForCompletion(ctx context.Context, id string, attempts int, interval time.Duration) error
}

// POSService mirrors a completed storefront sale into the Smaregi register
// so in-store reporting sees online ticket purchases.
type POSService struct {
	Orders     OrderAPI
	POS        POSRegistrar
	StoreID    string
	TerminalID string
}

func (s *POSService) RegisterSale(ctx context.Context, orderID string) (string, error) {
	order, err := s.Orders.RetrieveOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	var total int64
	if order.TotalMoney != nil {
		total = order.TotalMoney.Amount
	}

	now := time.Now().UTC()
	tx := &smaregi.Transaction{
		TransactionHeadDivision: "1",
		CancelDivision:          "0",
		Subtotal:                strconv.FormatInt(total, 10),
		SubtotalDiscountPrice:   "0",
		Total:                   strconv.FormatInt(total, 10),
		// 10% inclusive tax, rounded down.
		TaxInclude:           strconv.FormatInt(total*10/11, 10),
		TaxExclude:           "0",
		StoreID:              s.StoreID,
		TerminalID:           s.TerminalID,
		TerminalTranID:       tranID(orderID),
		TerminalTranDateTime: now.Format("2006-01-02T15:04:05+00:00"),
		SumDivision:          "2",
		SumDate:              now.Format("2006-01-02"),
		SellDivision:         "0",
		TaxRate:              "10",
		TaxRounding:          "1",
		TransactionUUID:      orderID,
	}

	for i, item := range order.LineItems {
		var unit int64
		if item.BasePriceMoney != nil {
			unit = item.BasePriceMoney.Amount
		}
		qty, err := strconv.ParseInt(item.Quantity, 10, 64)
		if err != nil || qty <= 0 {
			qty = 1
		}
		tx.Details = append(tx.Details, smaregi.Detail{
			ProductID:            strconv.Itoa(i + 1),
			ProductCode:          "DRINK_TICKET",
			ProductName:          item.Name,
			TaxDivision:          "1",
			Price:                strconv.FormatInt(unit, 10),
			Quantity:             strconv.FormatInt(qty, 10),
			UnitPrice:            strconv.FormatInt(unit, 10),
			Subtotal:             strconv.FormatInt(unit*qty, 10),
			UnitDiscountPrice:    "0",
			UnitDiscountRate:     "0",
			UnitDiscountDivision: "0",
			CostPrice:            "0",
		})
	}
	tx.DepositOthers = []smaregi.Deposit{
		{
			DepositOtherID:    "1",
			DepositOtherName:  "クレジットカード",
			DepositOtherPrice: strconv.FormatInt(total, 10),
		},
	}

	id, err := s.POS.RegisterTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("register transaction: %w", err)
	}
	if err := s.POS.WaitForCompletion(ctx, id, 10, time.Second); err != nil {
		return "", err
	}
	return id, nil
}

func tranID(orderID string) string {
	if len(orderID) > 10 {
		return orderID[len(orderID)-10:]
	}
	return orderID
}
