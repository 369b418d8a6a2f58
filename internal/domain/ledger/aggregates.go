// Package ledger contiene los cálculos puros de lectura sobre el libro contable.
// No hay agregados cacheados: los consumidores escanean las transacciones del período.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
)

// Summary totales de un período.
type Summary struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
	Margin  decimal.Decimal `json:"margin"` // Net / Income, 0 si no hubo ingresos
	Count   int             `json:"count"`
}

// Summarize agrega las transacciones con Date en [from, to). Ignora las anuladas.
func Summarize(txns []*entity.Transaction, from, to time.Time) Summary {
	s := Summary{From: from, To: to, Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero, Margin: decimal.Zero}
	for _, t := range txns {
		if t.Voided {
			continue
		}
		if t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		switch t.Type {
		case entity.TransactionIncome:
			s.Income = s.Income.Add(t.Amount)
		case entity.TransactionExpense:
			s.Expense = s.Expense.Add(t.Amount)
		default:
			continue
		}
		s.Count++
	}
	s.Net = s.Income.Sub(s.Expense)
	if s.Income.IsPositive() {
		s.Margin = s.Net.Div(s.Income).Round(4)
	}
	return s
}

// DayRange límites [inicio, fin) del día de ref en su zona horaria.
func DayRange(ref time.Time) (time.Time, time.Time) {
	from := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	return from, from.AddDate(0, 0, 1)
}

// WeekRange límites de la semana de ref (lunes a lunes).
func WeekRange(ref time.Time) (time.Time, time.Time) {
	day, _ := DayRange(ref)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // domingo cierra la semana
	}
	from := day.AddDate(0, 0, -(weekday - 1))
	return from, from.AddDate(0, 0, 7)
}

// MonthRange límites del mes calendario de ref.
func MonthRange(ref time.Time) (time.Time, time.Time) {
	from := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return from, from.AddDate(0, 1, 0)
}
