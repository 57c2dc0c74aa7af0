package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"AwabarTickets/internal/smaregi"
	"AwabarTickets/internal/square"
)

type fakeOrderAPI struct {
	order *square.Order
	err   error
}

func (f *fakeOrderAPI) RetrieveOrder(ctx context.Context, orderID string) (*square.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeOrderAPI) SearchOrders(ctx context.Context, locationIDs []string) ([]square.Order, error) {
	return nil, nil
}

type fakeRegistrar struct {
	tx      *smaregi.Transaction
	waitErr error
	waited  string
}

func (f *fakeRegistrar) RegisterTransaction(ctx context.Context, tx *smaregi.Transaction) (string, error) {
	f.tx = tx
	return "12345", nil
}

func (f *fakeRegistrar) WaitForCompletion(ctx context.Context, id string, attempts int, interval time.Duration) error {
	f.waited = id
	return f.waitErr
}

func newPOSService(orders *fakeOrderAPI, pos *fakeRegistrar) *POSService {
	return &POSService{
		Orders:     orders,
		POS:        pos,
		StoreID:    "7",
		TerminalID: "3",
	}
}

func TestRegisterSale(t *testing.T) {
	orders := &fakeOrderAPI{order: &square.Order{
		ID:    "ORDER-ABCDEFGHIJ",
		State: "COMPLETED",
		LineItems: []square.LineItem{
			{Name: "Drink", Quantity: "2", BasePriceMoney: &square.Money{Amount: 1000, Currency: "JPY"}},
			{Name: "Bottle", Quantity: "1", BasePriceMoney: &square.Money{Amount: 5000, Currency: "JPY"}},
		},
		TotalMoney: &square.Money{Amount: 7000, Currency: "JPY"},
	}}
	pos := &fakeRegistrar{}
	s := newPOSService(orders, pos)

	id, err := s.RegisterSale(context.Background(), "ORDER-ABCDEFGHIJ")
	if err != nil {
		t.Fatalf("register sale: %v", err)
	}
	if id != "12345" {
		t.Fatalf("expected id 12345, got %s", id)
	}
	if pos.waited != "12345" {
		t.Fatalf("completion not awaited for %s", pos.waited)
	}

	tx := pos.tx
	if tx == nil {
		t.Fatal("transaction never registered")
	}
	if tx.Total != "7000" || tx.Subtotal != "7000" {
		t.Fatalf("unexpected totals %+v", tx)
	}
	// 10% inclusive tax on 7000 rounds down to 636.
	if tx.TaxInclude != "636" {
		t.Fatalf("unexpected tax %q", tx.TaxInclude)
	}
	if tx.StoreID != "7" || tx.TerminalID != "3" {
		t.Fatalf("unexpected store/terminal %s/%s", tx.StoreID, tx.TerminalID)
	}
	// Terminal transaction id is the order id's last 10 characters.
	if tx.TerminalTranID != "ABCDEFGHIJ" {
		t.Fatalf("unexpected terminal tran id %q", tx.TerminalTranID)
	}
	if len(tx.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(tx.Details))
	}
	if tx.Details[0].Quantity != "2" || tx.Details[0].Subtotal != "2000" {
		t.Fatalf("unexpected detail %+v", tx.Details[0])
	}
	if len(tx.DepositOthers) != 1 || tx.DepositOthers[0].DepositOtherPrice != "7000" {
		t.Fatalf("unexpected deposit %+v", tx.DepositOthers)
	}
}

func TestRegisterSaleOrderNotFound(t *testing.T) {
	orders := &fakeOrderAPI{err: square.ErrOrderNotFound}
	pos := &fakeRegistrar{}
	s := newPOSService(orders, pos)

	if _, err := s.RegisterSale(context.Background(), "missing"); !errors.Is(err, square.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if pos.tx != nil {
		t.Fatal("missing order must not register a transaction")
	}
}

func TestRegisterSaleCompletionTimeout(t *testing.T) {
	orders := &fakeOrderAPI{order: &square.Order{
		ID:         "O1",
		LineItems:  []square.LineItem{{Name: "Drink", Quantity: "1"}},
		TotalMoney: &square.Money{Amount: 1000, Currency: "JPY"},
	}}
	pos := &fakeRegistrar{waitErr: smaregi.ErrTransactionTimeout}
	s := newPOSService(orders, pos)

	if _, err := s.RegisterSale(context.Background(), "O1"); !errors.Is(err, smaregi.ErrTransactionTimeout) {
		t.Fatalf("expected ErrTransactionTimeout, got %v", err)
	}
}
