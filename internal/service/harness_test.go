package service

import (
	"bytes"
	"sync"
	"testing"

	"studiovault/internal/catalog"

	"github.com/rs/zerolog"
)

// logBuffer collects warn and error log lines written by the services.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	logs      *logBuffer
	store     *memStore
	processor *fakeProcessor
	publisher *fakePublisher
	catalog   *catalog.Catalog
	access    AccessService
	selection SelectionService
	payments  PaymentService
	downloads DownloadService
	admin     AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	proc := newFakeProcessor()
	pub := &fakePublisher{}
	cat := catalog.New(19900, 49900)
	logs := &logBuffer{}
	log := zerolog.New(logs).Level(zerolog.WarnLevel)

	acc := NewAccessService(store, store, store, store, cat)
	env := &testEnv{
		logs:      logs,
		store:     store,
		processor: proc,
		publisher: pub,
		catalog:   cat,
		access:    acc,
		selection: NewSelectionService(store, store, store, store, log),
		payments: NewPaymentService(PaymentServiceDeps{
			Users:     store,
			Projects:  store,
			Content:   store,
			Payments:  store,
			Events:    store,
			Access:    acc,
			Catalog:   cat,
			Processor: proc,
			Publisher: pub,
			Topic:     "entitlements",
			Currency:  "usd",
		}, log),
		downloads: NewDownloadService(store, store, acc, log),
		admin:     NewAdminService(store, store, store, store, log),
	}
	return env
}
