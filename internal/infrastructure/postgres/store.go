package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
)

var _ store.Store = (*Store)(nil)

const notifyChannel = "store_changes"

// Store implementación de store.Store sobre una tabla de documentos versionados.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger

	mu   sync.RWMutex
	subs map[string]*subscriber

	listenCancel context.CancelFunc
	listenOnce   sync.Once
}

type subscriber struct {
	prefix string
	fn     func(store.Event)
}

// NewStore construye el store y garantiza el esquema.
func NewStore(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) (*Store, error) {
	s := &Store{pool: pool, log: log, subs: make(map[string]*subscriber)}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			path       text PRIMARY KEY,
			version    bigint NOT NULL,
			data       jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Get devuelve el documento en path o store.ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (*store.Document, error) {
	query := `SELECT version, data FROM documents WHERE path = $1`
	var doc store.Document
	doc.Path = path
	err := s.pool.QueryRow(ctx, query, path).Scan(&doc.Version, &doc.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// Put escribe sin condición e incrementa la versión.
func (s *Store) Put(ctx context.Context, path string, data []byte) (store.Version, error) {
	query := `
		INSERT INTO documents (path, version, data, updated_at)
		VALUES ($1, 1, $2, now())
		ON CONFLICT (path)
		DO UPDATE SET version = documents.version + 1, data = EXCLUDED.data, updated_at = now()
		RETURNING version`
	var version store.Version
	if err := s.pool.QueryRow(ctx, query, path, data).Scan(&version); err != nil {
		return 0, fmt.Errorf("put document: %w", err)
	}
	s.publish(ctx, path, version)
	return version, nil
}

// CompareAndSwap escribe solo si la versión actual es expected (0 = crear).
func (s *Store) CompareAndSwap(ctx context.Context, path string, expected store.Version, data []byte) (store.Version, error) {
	var version store.Version
	var err error
	if expected == 0 {
		query := `
			INSERT INTO documents (path, version, data, updated_at)
			VALUES ($1, 1, $2, now())
			ON CONFLICT (path) DO NOTHING
			RETURNING version`
		err = s.pool.QueryRow(ctx, query, path, data).Scan(&version)
	} else {
		query := `
			UPDATE documents
			SET version = version + 1, data = $3, updated_at = now()
			WHERE path = $1 AND version = $2
			RETURNING version`
		err = s.pool.QueryRow(ctx, query, path, expected, data).Scan(&version)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Sin fila afectada: la versión cambió desde la lectura (o ya existe).
			return 0, store.ErrVersionMismatch
		}
		return 0, fmt.Errorf("cas document: %w", err)
	}
	s.publish(ctx, path, version)
	return version, nil
}

// List devuelve los documentos bajo prefix ordenados por path.
func (s *Store) List(ctx context.Context, prefix string) ([]*store.Document, error) {
	query := `SELECT path, version, data FROM documents WHERE path LIKE $1 || '%' ORDER BY path`
	rows, err := s.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*store.Document
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(&doc.Path, &doc.Version, &doc.Data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// Subscribe registra un callback para cambios bajo prefix; arranca el listener
// LISTEN/NOTIFY la primera vez. El Unsubscribe devuelto es idempotente.
func (s *Store) Subscribe(prefix string, fn func(store.Event)) store.Unsubscribe {
	s.listenOnce.Do(s.startListener)

	id := uuid.New().String()
	s.mu.Lock()
	s.subs[id] = &subscriber{prefix: prefix, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close detiene el listener de notificaciones (el pool lo cierra el caller).
func (s *Store) Close() {
	if s.listenCancel != nil {
		s.listenCancel()
	}
}

type changePayload struct {
	Path    string        `json:"path"`
	Version store.Version `json:"version"`
}

// publish emite la notificación de cambio. Un fallo aquí no invalida la escritura:
// los suscriptores son una vista, no parte del contrato de consistencia.
func (s *Store) publish(ctx context.Context, path string, version store.Version) {
	payload, err := json.Marshal(changePayload{Path: path, Version: version})
	if err != nil {
		return
	}
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(payload)); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("notificación de cambio no enviada")
	}
}

func (s *Store) startListener() {
	ctx, cancel := context.WithCancel(context.Background())
	s.listenCancel = cancel
	go s.listen(ctx)
}

// listen mantiene una conexión dedicada en LISTEN y despacha los eventos a los
// suscriptores cuyo prefijo coincide. Reintenta la conexión si se cae.
func (s *Store) listen(ctx context.Context) {
	for ctx.Err() == nil {
		if err := s.listenLoop(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("listener de cambios desconectado, reintentando")
		}
	}
}

func (s *Store) listenLoop(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var payload changePayload
		if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
			continue
		}
		s.dispatch(ctx, payload)
	}
}

func (s *Store) dispatch(ctx context.Context, payload changePayload) {
	s.mu.RLock()
	var fns []func(store.Event)
	for _, sub := range s.subs {
		if strings.HasPrefix(payload.Path, sub.prefix) {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.RUnlock()
	if len(fns) == 0 {
		return
	}

	ev := store.Event{Path: payload.Path, Version: payload.Version}
	if doc, err := s.Get(ctx, payload.Path); err == nil {
		ev.Data = doc.Data
	}
	for _, fn := range fns {
		fn(ev)
	}
}
