package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/staychill/booking-backend/internal/models"
)

// MemStorage keeps everything in process memory. Used for local development
// and tests; all data is lost on restart.
type MemStorage struct {
	mu sync.RWMutex

	bookings   map[int64]*models.Booking
	properties map[int64]*models.Property
	users      map[uuid.UUID]*models.User

	nextBookingID  int64
	nextPropertyID int64

	audits *memAuditStore
	now    func() time.Time
}

// NewMemStorage creates an empty in-memory store
func NewMemStorage() *MemStorage {
	return &MemStorage{
		bookings:       make(map[int64]*models.Booking),
		properties:     make(map[int64]*models.Property),
		users:          make(map[uuid.UUID]*models.User),
		nextBookingID:  1,
		nextPropertyID: 1,
		audits:         &memAuditStore{},
		now:            time.Now,
	}
}

// ============================================================================
// BOOKINGS
// ============================================================================

func (s *MemStorage) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (s *MemStorage) CreateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := booking.Clone()
	if b.ID == 0 {
		b.ID = s.nextBookingID
	}
	if _, exists := s.bookings[b.ID]; exists {
		return nil, ErrDuplicate
	}
	if b.ID >= s.nextBookingID {
		s.nextBookingID = b.ID + 1
	}
	if b.Status == "" {
		b.Status = models.BookingStatusPending
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = models.PaymentStatusUnpaid
	}
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now

	s.bookings[b.ID] = b
	return b.Clone(), nil
}

func (s *MemStorage) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Booking, 0)
	for _, b := range s.bookings {
		if b.UserID == userID {
			result = append(result, b.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *MemStorage) ListBookingsByPaymentStatus(ctx context.Context, status models.PaymentStatus, updatedBefore time.Time, after *models.BookingCursor, limit int) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Booking, 0)
	for _, b := range s.bookings {
		if b.PaymentStatus != status || !b.UpdatedAt.Before(updatedBefore) {
			continue
		}
		if after != nil && !cursorLess(after, b) {
			continue
		}
		result = append(result, b.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return cursorLess(models.CursorOf(result[i]), result[j]) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// cursorLess reports whether c sorts before b in (updated_at, id) order
func cursorLess(c *models.BookingCursor, b *models.Booking) bool {
	if !c.UpdatedAt.Equal(b.UpdatedAt) {
		return c.UpdatedAt.Before(b.UpdatedAt)
	}
	return c.ID < b.ID
}

func (s *MemStorage) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error) {
	return s.mutateBooking(id, func(b *models.Booking) {
		b.Status = status
	})
}

func (s *MemStorage) UpdateBookingPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus, paymentIntentID *string) (*models.Booking, error) {
	return s.mutateBooking(id, func(b *models.Booking) {
		b.PaymentStatus = status
		if paymentIntentID != nil {
			intent := *paymentIntentID
			b.PaymentIntentID = &intent
		}
	})
}

func (s *MemStorage) UpdateBookingTotalAmount(ctx context.Context, id int64, amount float64) (*models.Booking, error) {
	return s.mutateBooking(id, func(b *models.Booking) {
		b.TotalAmount = amount
	})
}

func (s *MemStorage) mutateBooking(id int64, fn func(b *models.Booking)) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(b)
	b.UpdatedAt = s.now()
	return b.Clone(), nil
}

// ============================================================================
// PROPERTIES
// ============================================================================

func (s *MemStorage) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStorage) CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *property
	if p.ID == 0 {
		p.ID = s.nextPropertyID
	}
	if _, exists := s.properties[p.ID]; exists {
		return nil, ErrDuplicate
	}
	if p.ID >= s.nextPropertyID {
		s.nextPropertyID = p.ID + 1
	}
	p.CreatedAt = s.now()

	s.properties[p.ID] = &p
	cp := p
	return &cp, nil
}

func (s *MemStorage) ListProperties(ctx context.Context) ([]*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Property, 0, len(s.properties))
	for _, p := range s.properties {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ============================================================================
// USERS
// ============================================================================

func (s *MemStorage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range s.users {
		if u.Email == email {
			return nil, ErrDuplicate
		}
	}

	u := *user
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = email
	u.Roles = append([]string(nil), user.Roles...)
	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = &u
	return copyUser(&u), nil
}

func (s *MemStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	return &cp
}

// ============================================================================
// AUDITS / LIFECYCLE
// ============================================================================

// Audits returns the in-memory payment audit trail
func (s *MemStorage) Audits() PaymentAuditStore {
	return s.audits
}

// Ping always succeeds for the in-memory store
func (s *MemStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for the in-memory store
func (s *MemStorage) Close() error {
	return nil
}

type memAuditStore struct {
	mu      sync.RWMutex
	entries []*models.PaymentAudit
}

func (m *memAuditStore) Log(ctx context.Context, audit *models.PaymentAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *audit
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memAuditStore) ListByBooking(ctx context.Context, bookingID int64) ([]*models.PaymentAudit, error) {
	return m.filter(func(a *models.PaymentAudit) bool {
		return a.BookingID != nil && *a.BookingID == bookingID
	}), nil
}

func (m *memAuditStore) ListByIntent(ctx context.Context, paymentIntentID string) ([]*models.PaymentAudit, error) {
	return m.filter(func(a *models.PaymentAudit) bool {
		return a.PaymentIntentID != nil && *a.PaymentIntentID == paymentIntentID
	}), nil
}

func (m *memAuditStore) filter(keep func(a *models.PaymentAudit) bool) []*models.PaymentAudit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.PaymentAudit, 0)
	for _, a := range m.entries {
		if keep(a) {
			cp := *a
			result = append(result, &cp)
		}
	}
	return result
}
