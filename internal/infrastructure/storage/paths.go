// Package storage implementa los puertos de repositorio sobre las primitivas
// del store (documentos JSON versionados). Toda mutación compuesta del motor
// se apoya en el CompareAndSwap de estos repositorios.
package storage

import (
	"fmt"
	"time"
)

// Prefijos de rutas en el store.
const (
	PrefixProducts     = "products/"
	PrefixOrders       = "orders/"
	PrefixTransactions = "transactions/"
	PrefixSalesByOrder = "ledger/sales_by_order/"
	PrefixCounters     = "counters/"
	PrefixUsers        = "users_by_email/"
)

func productPath(id string) string     { return PrefixProducts + id }
func orderPath(id string) string       { return PrefixOrders + id }
func transactionPath(id string) string { return PrefixTransactions + id }
func saleIndexPath(orderID string) string {
	return PrefixSalesByOrder + orderID
}
func counterPath(name string, date time.Time) string {
	return fmt.Sprintf("%s%s/%s", PrefixCounters, name, date.Format("20060102"))
}
