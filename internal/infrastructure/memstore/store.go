// Package memstore implementa el puerto store.Store en memoria: documentos
// versionados, escritura condicional por versión y pub/sub por prefijo.
// Se usa en tests y en desarrollo (STORE_DRIVER=memory).
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
)

var _ store.Store = (*Store)(nil)

type subscriber struct {
	prefix string
	fn     func(store.Event)
}

// Store documento-store en memoria, seguro para uso concurrente.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*store.Document
	subs map[string]*subscriber // id -> suscriptor
}

// New construye un store vacío.
func New() *Store {
	return &Store{
		docs: make(map[string]*store.Document),
		subs: make(map[string]*subscriber),
	}
}

// Get devuelve una copia del documento en path o store.ErrNotFound.
func (s *Store) Get(_ context.Context, path string) (*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyDoc(doc), nil
}

// Put escribe sin condición, incrementa la versión y notifica.
func (s *Store) Put(_ context.Context, path string, data []byte) (store.Version, error) {
	s.mu.Lock()
	var version store.Version = 1
	if prev, ok := s.docs[path]; ok {
		version = prev.Version + 1
	}
	doc := &store.Document{Path: path, Version: version, Data: append([]byte(nil), data...)}
	s.docs[path] = doc
	fns := s.matching(path)
	s.mu.Unlock()

	s.notify(fns, doc)
	return version, nil
}

// CompareAndSwap escribe solo si la versión actual es expected (0 = crear).
func (s *Store) CompareAndSwap(_ context.Context, path string, expected store.Version, data []byte) (store.Version, error) {
	s.mu.Lock()
	var current store.Version
	if prev, ok := s.docs[path]; ok {
		current = prev.Version
	}
	if current != expected {
		s.mu.Unlock()
		return 0, store.ErrVersionMismatch
	}
	doc := &store.Document{Path: path, Version: current + 1, Data: append([]byte(nil), data...)}
	s.docs[path] = doc
	fns := s.matching(path)
	s.mu.Unlock()

	s.notify(fns, doc)
	return doc.Version, nil
}

// List devuelve los documentos bajo prefix ordenados por path.
func (s *Store) List(_ context.Context, prefix string) ([]*store.Document, error) {
	s.mu.RLock()
	out := make([]*store.Document, 0)
	for path, doc := range s.docs {
		if strings.HasPrefix(path, prefix) {
			out = append(out, copyDoc(doc))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Subscribe registra un callback para cambios bajo prefix. El Unsubscribe
// devuelto es idempotente.
func (s *Store) Subscribe(prefix string, fn func(store.Event)) store.Unsubscribe {
	id := uuid.New().String()
	s.mu.Lock()
	s.subs[id] = &subscriber{prefix: prefix, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id) // borrar dos veces no tiene efecto
		s.mu.Unlock()
	}
}

// matching se llama con el lock tomado: colecciona los callbacks a notificar.
func (s *Store) matching(path string) []func(store.Event) {
	var fns []func(store.Event)
	for _, sub := range s.subs {
		if strings.HasPrefix(path, sub.prefix) {
			fns = append(fns, sub.fn)
		}
	}
	return fns
}

// notify entrega el evento fuera del lock para no bloquear escritores.
func (s *Store) notify(fns []func(store.Event), doc *store.Document) {
	if len(fns) == 0 {
		return
	}
	ev := store.Event{Path: doc.Path, Version: doc.Version, Data: append([]byte(nil), doc.Data...)}
	for _, fn := range fns {
		fn(ev)
	}
}

func copyDoc(doc *store.Document) *store.Document {
	return &store.Document{
		Path:    doc.Path,
		Version: doc.Version,
		Data:    append([]byte(nil), doc.Data...),
	}
}
