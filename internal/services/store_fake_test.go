package services

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/repository"
)

var testTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// memStore is an in-memory txStore. Transactions are serialized and rolled
// back on error, which is enough to mirror the row locks of the real store.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID   int64
	users    map[int64]models.User
	mentors  map[int64]models.Mentor
	sessions map[int64]models.Session
	segments map[int64]models.TimerSegment
	reviews  map[int64]models.Review
	payments map[int64]models.Payment
	events   map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   100,
		users:    map[int64]models.User{},
		mentors:  map[int64]models.Mentor{},
		sessions: map[int64]models.Session{},
		segments: map[int64]models.TimerSegment{},
		reviews:  map[int64]models.Review{},
		payments: map[int64]models.Payment{},
		events:   map[string]string{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) repos() repos {
	return repos{
		sessions: memSessions{m},
		segments: memSegments{m},
		reviews:  memReviews{m},
		payments: memPayments{m},
		mentors:  memMentors{m},
		users:    memUsers{m},
	}
}

func (m *memStore) inTx(_ context.Context, fn func(repos) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.clone()
	m.mu.Unlock()

	if err := fn(m.repos()); err != nil {
		m.mu.Lock()
		m.restore(snapshot)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) clone() *memStore {
	return &memStore{
		nextID:   m.nextID,
		users:    maps.Clone(m.users),
		mentors:  maps.Clone(m.mentors),
		sessions: maps.Clone(m.sessions),
		segments: maps.Clone(m.segments),
		reviews:  maps.Clone(m.reviews),
		payments: maps.Clone(m.payments),
		events:   maps.Clone(m.events),
	}
}

func (m *memStore) restore(s *memStore) {
	m.nextID = s.nextID
	m.users = s.users
	m.mentors = s.mentors
	m.sessions = s.sessions
	m.segments = s.segments
	m.reviews = s.reviews
	m.payments = s.payments
	m.events = s.events
}

func (m *memStore) addUser(id int64, email string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := models.User{ID: id, Email: email, Username: email, Name: email, CreatedAt: testTime, UpdatedAt: testTime}
	m.users[id] = user
	return user
}

func (m *memStore) addMentor(id int64, userID int64, rate int64, approved bool) models.Mentor {
	m.mu.Lock()
	defer m.mu.Unlock()
	mentor := models.Mentor{ID: id, UserID: userID, Rate: rate, Approved: approved, IsActive: approved}
	m.mentors[id] = mentor
	return mentor
}

func (m *memStore) addSession(session models.Session) models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.ID == 0 {
		session.ID = m.id()
	}
	m.sessions[session.ID] = session
	return session
}

func (m *memStore) addSegment(segment models.TimerSegment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segment.ID = m.id()
	m.segments[segment.ID] = segment
}

func (m *memStore) session(id int64) models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *memStore) sessionSegments(sessionID int64) []models.TimerSegment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.segmentsFor(sessionID)
}

func (m *memStore) segmentsFor(sessionID int64) []models.TimerSegment {
	segments := make([]models.TimerSegment, 0)
	for _, segment := range m.segments {
		if segment.SessionID == sessionID {
			segments = append(segments, segment)
		}
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].StartTime.Before(segments[j].StartTime)
	})
	return segments
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

type memSessions struct{ m *memStore }

func (r memSessions) Create(_ context.Context, input repository.CreateSessionInput) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	session := models.Session{
		ID:        r.m.id(),
		MentorID:  input.MentorID,
		ClientID:  input.ClientID,
		StartTime: input.StartTime,
		CreatedAt: input.StartTime,
		UpdatedAt: input.StartTime,
	}
	r.m.sessions[session.ID] = session
	return &session, nil
}

func (r memSessions) GetByID(_ context.Context, sessionID int64) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	session, ok := r.m.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &session, nil
}

func (r memSessions) GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error) {
	return r.GetByID(ctx, sessionID)
}

func (r memSessions) GetParticipants(_ context.Context, sessionID int64) (*models.SessionParticipants, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	session, ok := r.m.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	mentor, ok := r.m.mentors[session.MentorID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &models.SessionParticipants{
		ClientID:     session.ClientID,
		MentorUserID: mentor.UserID,
		MentorRate:   mentor.Rate,
	}, nil
}

func (r memSessions) ListForUser(_ context.Context, userID int64, asMentor bool) ([]models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sessions := make([]models.Session, 0)
	for _, session := range r.m.sessions {
		if asMentor {
			if r.m.mentors[session.MentorID].UserID == userID {
				sessions = append(sessions, session)
			}
			continue
		}
		if session.ClientID == userID {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID > sessions[j].ID })
	return sessions, nil
}

func (r memSessions) Complete(_ context.Context, sessionID int64, input repository.CompleteSessionInput) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	session, ok := r.m.sessions[sessionID]
	if !ok || session.Completed {
		return nil, pgx.ErrNoRows
	}
	end := input.EndTime
	length := input.SessionLength
	session.EndTime = &end
	session.SessionLength = &length
	session.Completed = true
	r.m.sessions[sessionID] = session
	return &session, nil
}

func (r memSessions) MarkPaidIfUnpaid(_ context.Context, sessionID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	session, ok := r.m.sessions[sessionID]
	if !ok || session.Paid {
		return false, nil
	}
	session.Paid = true
	r.m.sessions[sessionID] = session
	return true, nil
}

type memSegments struct{ m *memStore }

func (r memSegments) Create(_ context.Context, sessionID int64, startTime time.Time) (*models.TimerSegment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, segment := range r.m.segments {
		if segment.SessionID == sessionID && segment.IsOpen() {
			return nil, uniqueViolation()
		}
	}
	segment := models.TimerSegment{ID: r.m.id(), SessionID: sessionID, StartTime: startTime}
	r.m.segments[segment.ID] = segment
	return &segment, nil
}

func (r memSegments) Close(_ context.Context, segmentID int64, endTime time.Time, length int64) (*models.TimerSegment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	segment, ok := r.m.segments[segmentID]
	if !ok || !segment.IsOpen() {
		return nil, pgx.ErrNoRows
	}
	segment.EndTime = &endTime
	segment.SessionLength = &length
	r.m.segments[segmentID] = segment
	return &segment, nil
}

func (r memSegments) ListBySessionID(_ context.Context, sessionID int64) ([]models.TimerSegment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.segmentsFor(sessionID), nil
}

func (r memSegments) ListBySessionIDs(_ context.Context, sessionIDs []int64) (map[int64][]models.TimerSegment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	grouped := make(map[int64][]models.TimerSegment, len(sessionIDs))
	for _, id := range sessionIDs {
		if segments := r.m.segmentsFor(id); len(segments) > 0 {
			grouped[id] = segments
		}
	}
	return grouped, nil
}

type memReviews struct{ m *memStore }

func (r memReviews) Create(_ context.Context, input repository.CreateReviewInput) (*models.Review, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, review := range r.m.reviews {
		if review.SessionID == input.SessionID {
			return nil, uniqueViolation()
		}
	}
	review := models.Review{
		ID:          r.m.id(),
		SessionID:   input.SessionID,
		Description: input.Description,
		Rating:      input.Rating,
		Timestamp:   testTime,
	}
	r.m.reviews[review.ID] = review
	return &review, nil
}

func (r memReviews) ExistsForSession(_ context.Context, sessionID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, review := range r.m.reviews {
		if review.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (r memReviews) ReviewedSessionIDs(_ context.Context, sessionIDs []int64) (map[int64]bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	reviewed := make(map[int64]bool)
	for _, review := range r.m.reviews {
		reviewed[review.SessionID] = true
	}
	return reviewed, nil
}

type memPayments struct{ m *memStore }

func (r memPayments) Create(_ context.Context, input repository.CreatePaymentInput) (*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.payments {
		if existing.CheckoutID == input.CheckoutID {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	payment := models.Payment{
		ID:         r.m.id(),
		SessionID:  input.SessionID,
		CheckoutID: input.CheckoutID,
		Amount:     input.Amount,
		Currency:   input.Currency,
		Status:     models.PaymentStatusPending,
	}
	r.m.payments[payment.ID] = payment
	return &payment, nil
}

func (r memPayments) GetByCheckoutID(_ context.Context, checkoutID string) (*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, payment := range r.m.payments {
		if payment.CheckoutID == checkoutID {
			return &payment, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memPayments) CountBySession(_ context.Context, sessionID int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	count := 0
	for _, payment := range r.m.payments {
		if payment.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (r memPayments) SettleCheckout(_ context.Context, sessionID int64, checkoutID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var settled int64
	for id, payment := range r.m.payments {
		if payment.SessionID == sessionID && payment.CheckoutID == checkoutID && payment.Status == models.PaymentStatusPending {
			payment.Status = models.PaymentStatusPaid
			r.m.payments[id] = payment
			settled++
		}
	}
	return settled, nil
}

func (r memPayments) RecordEvent(_ context.Context, eventID string, eventType string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.events[eventID]; ok {
		return false, nil
	}
	r.m.events[eventID] = eventType
	return true, nil
}

type memMentors struct{ m *memStore }

func (r memMentors) CreateIfMissing(_ context.Context, userID int64) (*models.Mentor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, mentor := range r.m.mentors {
		if mentor.UserID == userID {
			return &mentor, nil
		}
	}
	mentor := models.Mentor{ID: r.m.id(), UserID: userID}
	r.m.mentors[mentor.ID] = mentor
	return &mentor, nil
}

func (r memMentors) GetByID(_ context.Context, mentorID int64) (*models.Mentor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	mentor, ok := r.m.mentors[mentorID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &mentor, nil
}

func (r memMentors) GetByUserID(_ context.Context, userID int64) (*models.Mentor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, mentor := range r.m.mentors {
		if mentor.UserID == userID {
			return &mentor, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memMentors) GetProfile(_ context.Context, mentorID int64) (*models.MentorProfile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	mentor, ok := r.m.mentors[mentorID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.m.profile(mentor), nil
}

func (m *memStore) profile(mentor models.Mentor) *models.MentorProfile {
	user := m.users[mentor.UserID]
	return &models.MentorProfile{
		Mentor: mentor,
		User:   models.UserSummary{ID: user.ID, Username: user.Username, Name: user.Name, IsMentor: mentor.Approved},
	}
}

func (r memMentors) ListBookable(_ context.Context) ([]models.MentorProfile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	profiles := make([]models.MentorProfile, 0)
	for _, mentor := range r.m.mentors {
		if mentor.Bookable() {
			profiles = append(profiles, *r.m.profile(mentor))
		}
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

func (r memMentors) UpdatePartial(_ context.Context, userID int64, input repository.UpdateMentorInput) (*models.Mentor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, mentor := range r.m.mentors {
		if mentor.UserID != userID {
			continue
		}
		if input.Title != nil {
			mentor.Title = input.Title
		}
		if input.Bio != nil {
			mentor.Bio = input.Bio
		}
		if input.Rate != nil {
			mentor.Rate = *input.Rate
		}
		r.m.mentors[id] = mentor
		return &mentor, nil
	}
	return nil, pgx.ErrNoRows
}

func (r memMentors) SetStatus(_ context.Context, mentorID int64, approved bool, active bool) (*models.Mentor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	mentor, ok := r.m.mentors[mentorID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	mentor.Approved = approved
	mentor.IsActive = active
	r.m.mentors[mentorID] = mentor
	return &mentor, nil
}

type memUsers struct{ m *memStore }

func (r memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	user, ok := r.m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r memUsers) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) SetProcessorAccounts(_ context.Context, userID int64, accountID string, customerID string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	user, ok := r.m.users[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if user.StripeAccountID == nil && accountID != "" {
		user.StripeAccountID = &accountID
	}
	if user.StripeCustomerID == nil && customerID != "" {
		user.StripeCustomerID = &customerID
	}
	r.m.users[userID] = user
	return &user, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	updates []LiveUpdate
}

func (b *recordingBroadcaster) PublishSessionUpdate(_ int64, update LiveUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, update)
}
