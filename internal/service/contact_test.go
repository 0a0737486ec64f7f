package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/contactbridge/contactbridge/internal/activity"
	"github.com/contactbridge/contactbridge/internal/brevo"
	"github.com/contactbridge/contactbridge/internal/cache"
	"github.com/contactbridge/contactbridge/internal/metrics"
	"github.com/contactbridge/contactbridge/internal/testutil"
)

// fakeBrevo records calls and returns canned results.
type fakeBrevo struct {
	contacts map[string]*brevo.Contact
	lists    []brevo.List
	err      error

	calls []string
}

func (f *fakeBrevo) Configured() bool { return true }

func (f *fakeBrevo) FetchContactByEmail(ctx context.Context, email string) (*brevo.Contact, error) {
	f.calls = append(f.calls, "fetch")
	if f.err != nil {
		return nil, f.err
	}
	return f.contacts[email], nil
}

func (f *fakeBrevo) SubscribeToList(ctx context.Context, email string, listID int64, attributes map[string]any) (*brevo.SubscribeResult, error) {
	f.calls = append(f.calls, "subscribe")
	if f.err != nil {
		return nil, f.err
	}
	result := &brevo.SubscribeResult{}
	result.Contacts.Success = []string{email}
	return result, nil
}

func (f *fakeBrevo) CreateOrUpdateContact(ctx context.Context, email string, attributes map[string]any, listIDs []int64) (*brevo.UpsertResult, error) {
	f.calls = append(f.calls, "upsert")
	if f.err != nil {
		return nil, f.err
	}
	return &brevo.UpsertResult{ID: 5, Created: true}, nil
}

func (f *fakeBrevo) UpdateContactByEmail(ctx context.Context, email string, attributes map[string]any) (*brevo.UpdateResult, error) {
	f.calls = append(f.calls, "update")
	if f.err != nil {
		return nil, f.err
	}
	contact := f.contacts[email]
	if contact == nil {
		return nil, brevo.ErrContactNotFound
	}
	return &brevo.UpdateResult{ID: contact.ID, Email: email, Attributes: attributes}, nil
}

func (f *fakeBrevo) ListAllLists(ctx context.Context, pageSize, offset int) ([]brevo.List, error) {
	f.calls = append(f.calls, "lists")
	if f.err != nil {
		return nil, f.err
	}
	return f.lists, nil
}

// fakeListCache is an in-memory ListCache.
type fakeListCache struct {
	lists       []brevo.List
	cached      bool
	readErr     error
	invalidated int
}

func (c *fakeListCache) GetLists(ctx context.Context, pageSize, offset int) ([]brevo.List, error) {
	if c.readErr != nil {
		return nil, c.readErr
	}
	if !c.cached {
		return nil, cache.ErrCacheMiss
	}
	return c.lists, nil
}

func (c *fakeListCache) SetLists(ctx context.Context, pageSize, offset int, lists []brevo.List, ttl time.Duration) error {
	c.lists = lists
	c.cached = true
	return nil
}

func (c *fakeListCache) InvalidateLists(ctx context.Context) error {
	c.invalidated++
	c.cached = false
	return nil
}

// fakePublisher captures events synchronously.
type fakePublisher struct {
	mu     sync.Mutex
	events []activity.ContactEvent
}

func (p *fakePublisher) PublishAsync(event activity.ContactEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func newContactService(api *fakeBrevo, c ListCache, pub EventPublisher, recorder metrics.Recorder) *ContactService {
	return NewContactService(ContactServiceOptions{
		Brevo:     api,
		Cache:     c,
		Publisher: pub,
		Metrics:   recorder,
		Logger:    testutil.DiscardLogger(),
	})
}

func TestContactService_GetContact(t *testing.T) {
	api := &fakeBrevo{contacts: map[string]*brevo.Contact{
		"a@b.com": {ID: 1, Email: "a@b.com"},
	}}
	svc := newContactService(api, nil, nil, nil)

	contact, err := svc.GetContact(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("GetContact() error = %v", err)
	}
	if contact.Email != "a@b.com" {
		t.Errorf("Email = %q", contact.Email)
	}

	if _, err := svc.GetContact(context.Background(), "missing@b.com"); !errors.Is(err, ErrBrevoContactNotFound) {
		t.Errorf("expected ErrBrevoContactNotFound, got %v", err)
	}
}

func TestContactService_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		call    func(svc *ContactService) error
		wantErr error
	}{
		{"get without email", func(svc *ContactService) error {
			_, err := svc.GetContact(context.Background(), "")
			return err
		}, ErrEmailRequired},
		{"subscribe without email", func(svc *ContactService) error {
			_, err := svc.Subscribe(context.Background(), SubscribeInput{ListID: 3})
			return err
		}, ErrEmailRequired},
		{"subscribe without list", func(svc *ContactService) error {
			_, err := svc.Subscribe(context.Background(), SubscribeInput{Email: "a@b.com"})
			return err
		}, ErrListIDRequired},
		{"upsert without email", func(svc *ContactService) error {
			_, err := svc.Upsert(context.Background(), UpsertInput{})
			return err
		}, ErrEmailRequired},
		{"update without email", func(svc *ContactService) error {
			_, err := svc.UpdateByEmail(context.Background(), "", map[string]any{"A": 1})
			return err
		}, ErrEmailRequired},
		{"update without attributes", func(svc *ContactService) error {
			_, err := svc.UpdateByEmail(context.Background(), "a@b.com", map[string]any{})
			return err
		}, ErrAttributesRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeBrevo{}
			svc := newContactService(api, nil, nil, nil)

			err := tt.call(svc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if !IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}
			if len(api.calls) != 0 {
				t.Errorf("expected no upstream calls, got %v", api.calls)
			}
		})
	}
}

func TestContactService_SubscribePublishesAndInvalidates(t *testing.T) {
	api := &fakeBrevo{}
	listCache := &fakeListCache{cached: true}
	pub := &fakePublisher{}
	svc := newContactService(api, listCache, pub, nil)

	_, err := svc.Subscribe(context.Background(), SubscribeInput{
		Email:      "a@b.com",
		ListID:     9,
		Attributes: map[string]any{"LASTNAME": "Doe", "FIRSTNAME": "Jane"},
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if listCache.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", listCache.invalidated)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	event := pub.events[0]
	if event.Type != activity.TypeSubscribed || event.Email != "a@b.com" {
		t.Errorf("event = %+v", event)
	}
	if len(event.ListIDs) != 1 || event.ListIDs[0] != 9 {
		t.Errorf("ListIDs = %v", event.ListIDs)
	}
	if len(event.Attributes) != 2 || event.Attributes[0] != "FIRSTNAME" {
		t.Errorf("Attributes = %v, want sorted names", event.Attributes)
	}
}

func TestContactService_FailureDoesNotPublish(t *testing.T) {
	api := &fakeBrevo{err: errors.New("boom")}
	pub := &fakePublisher{}
	svc := newContactService(api, nil, pub, nil)

	if _, err := svc.Upsert(context.Background(), UpsertInput{Email: "a@b.com"}); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.events) != 0 {
		t.Errorf("no event expected on failure, got %v", pub.events)
	}
}

func TestContactService_UpdateByEmailNotFound(t *testing.T) {
	api := &fakeBrevo{contacts: map[string]*brevo.Contact{}}
	svc := newContactService(api, nil, nil, nil)

	_, err := svc.UpdateByEmail(context.Background(), "ghost@b.com", map[string]any{"A": 1})
	if !errors.Is(err, ErrBrevoContactNotFound) {
		t.Errorf("expected ErrBrevoContactNotFound, got %v", err)
	}
}

func TestContactService_ListsCache(t *testing.T) {
	api := &fakeBrevo{lists: []brevo.List{{ID: 1, Name: "Newsletter"}}}
	listCache := &fakeListCache{}
	recorder := metrics.NewInMemory()
	svc := newContactService(api, listCache, nil, recorder)

	for i := 0; i < 2; i++ {
		lists, err := svc.Lists(context.Background())
		if err != nil {
			t.Fatalf("Lists() error = %v", err)
		}
		if len(lists) != 1 || lists[0].Name != "Newsletter" {
			t.Errorf("Lists() = %+v", lists)
		}
	}

	if len(api.calls) != 1 {
		t.Errorf("upstream calls = %v, want one", api.calls)
	}
	snap := recorder.Snapshot()
	if snap.ListsCacheHits != 1 || snap.ListsCacheMisses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", snap.ListsCacheHits, snap.ListsCacheMisses)
	}
}

func TestContactService_ListsCacheErrorFallsThrough(t *testing.T) {
	api := &fakeBrevo{lists: []brevo.List{{ID: 1}}}
	listCache := &fakeListCache{readErr: errors.New("redis down")}
	svc := newContactService(api, listCache, nil, nil)

	lists, err := svc.Lists(context.Background())
	if err != nil {
		t.Fatalf("Lists() error = %v", err)
	}
	if len(lists) != 1 {
		t.Errorf("Lists() = %+v", lists)
	}
}

func TestContactService_ListsEmpty(t *testing.T) {
	svc := newContactService(&fakeBrevo{}, nil, nil, nil)

	lists, err := svc.Lists(context.Background())
	if err != nil {
		t.Fatalf("Lists() error = %v", err)
	}
	if lists == nil || len(lists) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", lists)
	}
}
