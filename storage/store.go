package storage

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Key names one persisted document.
type Key string

const (
	KeyPartyInfo    Key = "party_info"
	KeyEvents       Key = "events"
	KeyTasks        Key = "tasks"
	KeyGuests       Key = "guests"
	KeyInvitations  Key = "invitations"
	KeyShoppingList Key = "shopping_list"
	KeyNotes        Key = "notes"
)

// Keys lists every document owned by the store.
var Keys = []Key{KeyPartyInfo, KeyEvents, KeyTasks, KeyGuests, KeyInvitations, KeyShoppingList, KeyNotes}

// Backend persists raw JSON documents under string keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes every document or none of them.
	SetMany(ctx context.Context, docs map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the keyed collection store. It encodes values as JSON and hands
// them to a Backend.
type Store struct {
	backend  Backend
	prefix   string
	notifier Notifier
	tracer   trace.Tracer
	metrics  *Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key, e.g. "party:" yields "party:events".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithNotifier publishes a Change after every successful write.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Store) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

const tracerName = "party-planner/storage"

// New creates a Store on top of the given backend.
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		panic("storage.New: backend is nil")
	}
	s := &Store{
		backend:  backend,
		notifier: NopNotifier{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the backend when it supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) key(k Key) string { return s.prefix + string(k) }

// Read decodes the document stored under key into dest. It reports false
// when the key is absent. Backend failures and undecodable documents yield a
// *ReadError; dest is only assigned when decoding succeeds.
func (s *Store) Read(ctx context.Context, key Key, dest any) (found bool, err error) {
	ctx, span := s.start(ctx, "store.read", key)
	start := time.Now()
	defer func() { s.finish(span, "read", key, start, err) }()

	data, ok, err := s.backend.Get(ctx, s.key(key))
	if err != nil {
		return false, &ReadError{Key: key, Err: err}
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return false, &ReadError{Key: key, Err: fmt.Errorf("destination must be a non-nil pointer, got %T", dest)}
	}
	fresh := reflect.New(target.Elem().Type())
	if err := sonic.ConfigStd.Unmarshal(data, fresh.Interface()); err != nil {
		return false, &ReadError{Key: key, Err: err, Decode: true}
	}
	target.Elem().Set(fresh.Elem())
	return true, nil
}

// ReadOrEmpty is Read with a fallback for damaged documents: undecodable
// bytes are logged and treated as absent. Backend failures are returned so
// that a mutation never rebuilds a collection it could not load.
func (s *Store) ReadOrEmpty(ctx context.Context, key Key, dest any) (bool, error) {
	found, err := s.Read(ctx, key, dest)
	if err == nil {
		return found, nil
	}
	if IsCorrupt(err) {
		log.WithFields(log.Fields{"key": string(key), "error": err}).Warn("unreadable collection, using empty value")
		return false, nil
	}
	return false, err
}

// Write encodes value and stores it under key.
func (s *Store) Write(ctx context.Context, key Key, value any) (err error) {
	ctx, span := s.start(ctx, "store.write", key)
	start := time.Now()
	defer func() { s.finish(span, "write", key, start, err) }()

	data, err := sonic.ConfigStd.Marshal(value)
	if err != nil {
		return &WriteError{Key: key, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := s.backend.Set(ctx, s.key(key), data); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	s.notify(ctx, key)
	return nil
}

// WriteAll stores several documents as one unit: either every key is
// rewritten or none is.
func (s *Store) WriteAll(ctx context.Context, docs map[Key]any) (err error) {
	ctx, span := s.tracer.Start(ctx, "store.write_all", trace.WithAttributes(attribute.Int("store.keys", len(docs))))
	start := time.Now()
	defer func() { s.finish(span, "write_all", "", start, err) }()

	raw := make(map[string][]byte, len(docs))
	for key, value := range docs {
		data, err := sonic.ConfigStd.Marshal(value)
		if err != nil {
			return &WriteError{Key: key, Err: fmt.Errorf("encode: %w", err)}
		}
		raw[s.key(key)] = data
	}
	if err := s.backend.SetMany(ctx, raw); err != nil {
		return &WriteError{Err: err}
	}
	for key := range docs {
		s.notify(ctx, key)
	}
	return nil
}

// Delete removes a single document.
func (s *Store) Delete(ctx context.Context, key Key) (err error) {
	ctx, span := s.start(ctx, "store.delete", key)
	start := time.Now()
	defer func() { s.finish(span, "delete", key, start, err) }()

	if err := s.backend.Delete(ctx, s.key(key)); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	s.notify(ctx, key)
	return nil
}

// Clear removes every collection. It cannot be undone.
func (s *Store) Clear(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "store.clear")
	start := time.Now()
	defer func() { s.finish(span, "clear", "", start, err) }()

	keys := make([]string, len(Keys))
	for i, k := range Keys {
		keys[i] = s.key(k)
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		return &WriteError{Err: err}
	}
	for _, k := range Keys {
		s.notify(ctx, k)
	}
	log.Info("store cleared")
	return nil
}

func (s *Store) start(ctx context.Context, name string, key Key) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("store.key", string(key))))
}

func (s *Store) finish(span trace.Span, op string, key Key, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.metrics.observe(op, key, time.Since(start), err)
}

func (s *Store) notify(ctx context.Context, key Key) {
	change := Change{Key: string(key), At: time.Now().UnixMilli()}
	if err := s.notifier.Notify(ctx, change); err != nil {
		log.WithFields(log.Fields{"key": string(key), "error": err}).Warn("change notification failed")
	}
}
