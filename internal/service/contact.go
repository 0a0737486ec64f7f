package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/contactbridge/contactbridge/internal/activity"
	"github.com/contactbridge/contactbridge/internal/brevo"
	"github.com/contactbridge/contactbridge/internal/cache"
	"github.com/contactbridge/contactbridge/internal/metrics"
)

// BrevoAPI is the subset of the Brevo adapter the service uses.
type BrevoAPI interface {
	Configured() bool
	FetchContactByEmail(ctx context.Context, email string) (*brevo.Contact, error)
	SubscribeToList(ctx context.Context, email string, listID int64, attributes map[string]any) (*brevo.SubscribeResult, error)
	CreateOrUpdateContact(ctx context.Context, email string, attributes map[string]any, listIDs []int64) (*brevo.UpsertResult, error)
	UpdateContactByEmail(ctx context.Context, email string, attributes map[string]any) (*brevo.UpdateResult, error)
	ListAllLists(ctx context.Context, pageSize, offset int) ([]brevo.List, error)
}

// ListCache caches list enumeration results.
type ListCache interface {
	GetLists(ctx context.Context, pageSize, offset int) ([]brevo.List, error)
	SetLists(ctx context.Context, pageSize, offset int, lists []brevo.List, ttl time.Duration) error
	InvalidateLists(ctx context.Context) error
}

// EventPublisher receives contact change events.
type EventPublisher interface {
	PublishAsync(event activity.ContactEvent)
}

// ContactServiceOptions configures a ContactService. Only Brevo is
// required.
type ContactServiceOptions struct {
	Brevo     BrevoAPI
	Cache     ListCache
	ListsTTL  time.Duration
	Publisher EventPublisher
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

// ContactService handles Brevo contact operations.
type ContactService struct {
	brevo     BrevoAPI
	cache     ListCache
	listsTTL  time.Duration
	publisher EventPublisher
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewContactService creates a new ContactService.
func NewContactService(opts ContactServiceOptions) *ContactService {
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactService{
		brevo:     opts.Brevo,
		cache:     opts.Cache,
		listsTTL:  opts.ListsTTL,
		publisher: opts.Publisher,
		metrics:   recorder,
		logger:    logger.With("component", "service.contact"),
	}
}

// BrevoConfigured reports whether the Brevo API key is set.
func (s *ContactService) BrevoConfigured() bool {
	return s.brevo != nil && s.brevo.Configured()
}

// GetContact looks up a Brevo contact by email. It returns
// ErrBrevoContactNotFound when the contact does not exist.
func (s *ContactService) GetContact(ctx context.Context, email string) (*brevo.Contact, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}

	contact, err := s.brevo.FetchContactByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, ErrBrevoContactNotFound
	}
	return contact, nil
}

// SubscribeInput defines input for adding a contact to a list.
type SubscribeInput struct {
	Email      string
	ListID     int64
	Attributes map[string]any
}

// Subscribe adds a contact to a list.
func (s *ContactService) Subscribe(ctx context.Context, input SubscribeInput) (*brevo.SubscribeResult, error) {
	if input.Email == "" {
		return nil, ErrEmailRequired
	}
	if input.ListID <= 0 {
		return nil, ErrListIDRequired
	}

	result, err := s.brevo.SubscribeToList(ctx, input.Email, input.ListID, input.Attributes)
	if err != nil {
		return nil, err
	}

	s.invalidateLists(ctx)

	event := activity.NewEvent(activity.TypeSubscribed, input.Email)
	event.ListIDs = []int64{input.ListID}
	event.Attributes = attributeNames(input.Attributes)
	s.publish(event)

	return result, nil
}

// UpsertInput defines input for creating or updating a contact.
type UpsertInput struct {
	Email      string
	Attributes map[string]any
	ListIDs    []int64
}

// Upsert creates the contact or updates it if it exists.
func (s *ContactService) Upsert(ctx context.Context, input UpsertInput) (*brevo.UpsertResult, error) {
	if input.Email == "" {
		return nil, ErrEmailRequired
	}

	result, err := s.brevo.CreateOrUpdateContact(ctx, input.Email, input.Attributes, input.ListIDs)
	if err != nil {
		return nil, err
	}

	if len(input.ListIDs) > 0 {
		s.invalidateLists(ctx)
	}

	event := activity.NewEvent(activity.TypeUpserted, input.Email)
	event.ContactID = result.ID
	event.ListIDs = input.ListIDs
	event.Attributes = attributeNames(input.Attributes)
	s.publish(event)

	return result, nil
}

// UpdateByEmail sets attributes on an existing contact. It returns
// ErrBrevoContactNotFound when no contact exists for the email.
func (s *ContactService) UpdateByEmail(ctx context.Context, email string, attributes map[string]any) (*brevo.UpdateResult, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(attributes) == 0 {
		return nil, ErrAttributesRequired
	}

	result, err := s.brevo.UpdateContactByEmail(ctx, email, attributes)
	if err != nil {
		return nil, err
	}

	s.logger.Info("contact_updated",
		"contact_id", result.ID,
		"attribute_count", len(attributes),
	)

	event := activity.NewEvent(activity.TypeUpdated, email)
	event.ContactID = result.ID
	event.Attributes = attributeNames(attributes)
	s.publish(event)

	return result, nil
}

// Lists enumerates Brevo lists, using the cache when one is configured.
func (s *ContactService) Lists(ctx context.Context) ([]brevo.List, error) {
	pageSize, offset := brevo.DefaultListPageSize, 0

	if s.cache != nil {
		lists, err := s.cache.GetLists(ctx, pageSize, offset)
		if err == nil {
			s.metrics.IncListsCacheHit()
			return lists, nil
		}
		s.metrics.IncListsCacheMiss()
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("list cache read failed", "error", err)
		}
	}

	lists, err := s.brevo.ListAllLists(ctx, pageSize, offset)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []brevo.List{}
	}

	if s.cache != nil {
		if err := s.cache.SetLists(ctx, pageSize, offset, lists, s.listsTTL); err != nil {
			s.logger.Warn("list cache write failed", "error", err)
		}
	}

	return lists, nil
}

func (s *ContactService) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLists(ctx); err != nil {
		s.logger.Warn("list cache invalidation failed", "error", err)
	}
}

func (s *ContactService) publish(event activity.ContactEvent) {
	if s.publisher != nil {
		s.publisher.PublishAsync(event)
	}
}

// attributeNames returns the sorted attribute keys; values are never
// published.
func attributeNames(attributes map[string]any) []string {
	if len(attributes) == 0 {
		return nil
	}
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
