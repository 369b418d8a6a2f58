package domain

import (
	"fmt"
	"time"
)

// Formatos de identificadores legibles y ordenables por fecha.

// FormatOrderID identificador de orden: ORDER_YYYYMMDD_NNN.
func FormatOrderID(date time.Time, seq int) string {
	return fmt.Sprintf("ORDER_%s_%03d", date.Format("20060102"), seq)
}

// FormatTransactionID identificador de transacción: TXN_YYYYMMDD_NNNN.
func FormatTransactionID(date time.Time, seq int) string {
	return fmt.Sprintf("TXN_%s_%04d", date.Format("20060102"), seq)
}
