package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"studiovault/internal/model"

	"github.com/google/uuid"
)

// memStore implements every repository interface over maps. Each method holds
// the mutex for its whole body, which gives the same atomicity the SQL
// implementations get from transactions and conditional updates.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*model.User
	projects     map[string]*model.Project
	items        map[string]*model.ContentItem
	selections   map[string]*model.Selection // key: user|item
	payments     map[string]*model.Payment   // key: intent id
	entitlements map[string]*model.ProjectEntitlement
	purchases    map[string]*model.Purchase // key: user|item
	downloads    []model.Download
	events       map[string]*model.WebhookEvent
	grants       int
	failNext     error
	// beforeSelect runs inside CreateFreeSelection with the lock held.
	beforeSelect func()
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]*model.User{},
		projects:     map[string]*model.Project{},
		items:        map[string]*model.ContentItem{},
		selections:   map[string]*model.Selection{},
		payments:     map[string]*model.Payment{},
		entitlements: map[string]*model.ProjectEntitlement{},
		purchases:    map[string]*model.Purchase{},
		events:       map[string]*model.WebhookEvent{},
	}
}

func key(a, b string) string { return a + "|" + b }

func (m *memStore) addUser(id string) {
	m.users[id] = &model.User{UserID: id, Role: model.RoleUser}
}

func (m *memStore) addProject(id string, videoLimit, headshotLimit int) *model.Project {
	p := &model.Project{ProjectID: id, Name: id, FreeVideoLimit: videoLimit, FreeHeadshotLimit: headshotLimit}
	m.projects[id] = p
	return p
}

func (m *memStore) addItem(id, projectID string, t model.ContentType, price int64) *model.ContentItem {
	c := &model.ContentItem{ContentItemID: id, ProjectID: projectID, Type: t, PriceCents: price}
	m.items[id] = c
	return c
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

// UserRepository

func (m *memStore) UpsertUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.UserID]; ok {
		if u.Email != "" {
			existing.Email = u.Email
		}
		*u = *existing
		return nil
	}
	u.Role = model.RoleUser
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.UserID] = &cp
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

// ProjectRepository

func (m *memStore) GetProjectByID(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

// ContentRepository

func (m *memStore) GetContentItemByID(_ context.Context, id string) (*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) DeleteContentItem(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	for k, s := range m.selections {
		if s.ContentItemID == id {
			delete(m.selections, k)
		}
	}
	for k, p := range m.purchases {
		if p.ContentItemID == id {
			delete(m.purchases, k)
		}
	}
	for k, p := range m.payments {
		if p.ContentItemID != nil && *p.ContentItemID == id {
			delete(m.payments, k)
		}
	}
	kept := m.downloads[:0]
	for _, d := range m.downloads {
		if d.ContentItemID != id {
			kept = append(kept, d)
		}
	}
	m.downloads = kept
	delete(m.items, id)
	return true, nil
}

// SelectionRepository

func (m *memStore) countLocked(userID, projectID string, t model.ContentType) int {
	n := 0
	for _, s := range m.selections {
		if s.UserID == userID && s.ProjectID == projectID && s.ContentType == t {
			n++
		}
	}
	return n
}

func (m *memStore) CountFreeSelections(_ context.Context, userID, projectID string, t model.ContentType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(userID, projectID, t), nil
}

func (m *memStore) GetSelection(_ context.Context, userID, itemID string) (*model.Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.selections[key(userID, itemID)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) CreateFreeSelection(_ context.Context, sel *model.Selection, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if m.beforeSelect != nil {
		m.beforeSelect()
	}
	if _, ok := m.selections[key(sel.UserID, sel.ContentItemID)]; ok {
		return model.ErrAlreadySelected
	}
	if m.countLocked(sel.UserID, sel.ProjectID, sel.ContentType) >= limit {
		return model.ErrLimitReached
	}
	sel.SelectionID = uuid.NewString()
	sel.SelectionType = model.SelectionTypeFree
	sel.CreatedAt = time.Now()
	cp := *sel
	m.selections[key(sel.UserID, sel.ContentItemID)] = &cp
	return nil
}

// PaymentRepository

func (m *memStore) CreatePayment(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ProcessorIntentID]; ok {
		return fmt.Errorf("duplicate intent %s", p.ProcessorIntentID)
	}
	p.Status = model.PaymentStatusPending
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.payments[p.ProcessorIntentID] = &cp
	return nil
}

func (m *memStore) GetPaymentByIntentID(_ context.Context, intentID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[intentID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListPaymentsByProject(_ context.Context, projectID string) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Payment{}
	for _, p := range m.payments {
		inProject := p.ProjectID != nil && *p.ProjectID == projectID
		if p.ContentItemID != nil {
			if it, ok := m.items[*p.ContentItemID]; ok && it.ProjectID == projectID {
				inProject = true
			}
		}
		if inProject {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListStalePending(_ context.Context, olderThan time.Time, limit int) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Payment{}
	for _, p := range m.payments {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CompleteSucceeded(_ context.Context, intentID string) (*model.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[intentID]
	if !ok {
		return nil, false, model.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		cp := *p
		return &cp, false, nil
	}
	if err := m.takeFailure(); err != nil {
		return nil, false, err
	}
	p.Status = model.PaymentStatusSucceeded
	switch {
	case p.PackageType != nil:
		k := key(p.UserID, *p.ProjectID)
		ent, ok := m.entitlements[k]
		if !ok {
			ent = &model.ProjectEntitlement{UserID: p.UserID, ProjectID: *p.ProjectID}
			m.entitlements[k] = ent
		}
		if *p.PackageType == model.PackageAdditional3Videos {
			ent.HasAdditional3Videos = true
		} else {
			ent.HasAllRemainingContent = true
		}
	case p.ContentItemID != nil:
		k := key(p.UserID, *p.ContentItemID)
		if _, exists := m.purchases[k]; !exists {
			m.purchases[k] = &model.Purchase{UserID: p.UserID, ContentItemID: *p.ContentItemID, PaymentID: p.PaymentID}
		}
	}
	m.grants++
	cp := *p
	return &cp, true, nil
}

func (m *memStore) MarkFailed(_ context.Context, intentID string) (*model.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[intentID]
	if !ok {
		return nil, false, model.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		cp := *p
		return &cp, false, nil
	}
	p.Status = model.PaymentStatusFailed
	cp := *p
	return &cp, true, nil
}

// EntitlementRepository

func (m *memStore) GetProjectEntitlement(_ context.Context, userID, projectID string) (*model.ProjectEntitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entitlements[key(userID, projectID)]; ok {
		cp := *e
		return &cp, nil
	}
	return &model.ProjectEntitlement{UserID: userID, ProjectID: projectID}, nil
}

func (m *memStore) HasPurchase(_ context.Context, userID, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.purchases[key(userID, itemID)]
	return ok, nil
}

func (m *memStore) RevokePackages(_ context.Context, userID, projectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entitlements[key(userID, projectID)]
	if !ok {
		return false, nil
	}
	e.HasAdditional3Videos = false
	e.HasAllRemainingContent = false
	return true, nil
}

// DownloadRepository

func (m *memStore) RecordDownload(_ context.Context, d *model.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.DownloadID = uuid.NewString()
	d.CreatedAt = time.Now()
	m.downloads = append(m.downloads, *d)
	return nil
}

func (m *memStore) ListDownloadsByUser(_ context.Context, userID string, limit int) ([]model.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Download{}
	for i := len(m.downloads) - 1; i >= 0 && len(out) < limit; i-- {
		if m.downloads[i].UserID == userID {
			out = append(out, m.downloads[i])
		}
	}
	return out, nil
}

// WebhookEventRepository

func (m *memStore) RecordEvent(_ context.Context, e *model.WebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ProcessorEventID]; ok {
		return false, nil
	}
	cp := *e
	m.events[e.ProcessorEventID] = &cp
	return true, nil
}

// fakeProcessor is an in-memory payment processor.
type fakeProcessor struct {
	mu        sync.Mutex
	intents   map[string]*Intent
	seq       int
	createErr error
	getErr    error
	events    map[string]*ProcessorEvent // keyed by payload
	cancelled []string
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{intents: map[string]*Intent{}, events: map[string]*ProcessorEvent{}}
}

func (f *fakeProcessor) CreateIntent(_ context.Context, amount int64, _ string, md map[string]string, _ string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	id := fmt.Sprintf("pi_%d", f.seq)
	in := &Intent{ID: id, ClientSecret: id + "_secret", Status: IntentStatusPending, AmountCents: amount, Metadata: md}
	f.intents[id] = in
	cp := *in
	return &cp, nil
}

func (f *fakeProcessor) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	in, ok := f.intents[id]
	if !ok {
		return nil, fmt.Errorf("no intent %s: %w", id, model.ErrPaymentProcessor)
	}
	cp := *in
	return &cp, nil
}

func (f *fakeProcessor) CancelIntent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	if in, ok := f.intents[id]; ok {
		in.Status = IntentStatusFailed
	}
	return nil
}

func (f *fakeProcessor) ParseWebhook(payload []byte, signature string) (*ProcessorEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if signature != "valid" {
		return nil, model.ErrSignatureInvalid
	}
	ev, ok := f.events[string(payload)]
	if !ok {
		return nil, fmt.Errorf("unknown payload %q", payload)
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeProcessor) setStatus(id string, s IntentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents[id].Status = s
}

// succeed marks the intent paid and registers a webhook payload for it.
func (f *fakeProcessor) succeed(id, eventID string) []byte {
	f.setStatus(id, IntentStatusSucceeded)
	return f.register(&ProcessorEvent{ID: eventID, Type: "payment_intent.succeeded", IntentID: id, Status: IntentStatusSucceeded})
}

func (f *fakeProcessor) register(ev *ProcessorEvent) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload := "event:" + ev.ID
	f.events[payload] = ev
	return []byte(payload)
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *fakePublisher) Publish(_ context.Context, _ string, payload []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, payload)
	return fmt.Sprintf("msg-%d", len(p.messages)), nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}
