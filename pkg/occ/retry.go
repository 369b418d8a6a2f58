// Package occ ejecuta unidades de concurrencia optimista con reintentos
// acotados y backoff exponencial. Ninguna operación bloquea indefinidamente:
// al agotar el presupuesto se devuelve el último error al caller.
package occ

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config presupuesto de reintentos.
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Default presupuesto razonable para contención moderada sobre el store.
func Default() Config {
	return Config{MaxRetries: 8, InitialInterval: 2 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
}

// Run ejecuta op; mientras retryable(err) sea true reintenta con backoff
// exponencial hasta MaxRetries. Errores no reintentables cortan de inmediato.
// Devuelve el último error cuando el presupuesto se agota.
func (c Config) Run(ctx context.Context, retryable func(error) bool, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.InitialInterval
	bo.MaxInterval = c.MaxInterval
	bo.MaxElapsedTime = 0 // el corte lo da MaxRetries, no el reloj

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx))
}
