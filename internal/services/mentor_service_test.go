package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mattfreire/mentors/internal/apperr"
)

func newMentorFixture(t *testing.T) (*memStore, *MentorService) {
	t.Helper()
	store := newMemStore()
	store.addUser(mentorUserID, "mentor@example.com")
	store.addUser(outsiderID, "pending@example.com")
	store.addMentor(mentorID, mentorUserID, 1500, true)
	store.addMentor(11, outsiderID, 1000, false)
	return store, NewMentorService(store)
}

func TestMentorServiceListsOnlyBookableMentors(t *testing.T) {
	ctx := context.Background()
	_, service := newMentorFixture(t)

	mentors, err := service.ListMentors(ctx)
	if err != nil {
		t.Fatalf("ListMentors: %v", err)
	}
	if len(mentors) != 1 || mentors[0].ID != mentorID || !mentors[0].User.IsMentor {
		t.Fatalf("unexpected mentors %+v", mentors)
	}

	if _, err := service.GetMentor(ctx, 11); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected unapproved mentor to be hidden, got %v", err)
	}
	if _, err := service.GetMentor(ctx, mentorID); err != nil {
		t.Fatalf("GetMentor: %v", err)
	}
}

func TestMentorServiceUpdateOwnProfile(t *testing.T) {
	ctx := context.Background()
	_, service := newMentorFixture(t)

	title := "  Staff engineer  "
	rate := int64(2500)
	mentor, err := service.UpdateOwnProfile(ctx, mentorUserID, UpdateMentorInput{Title: &title, Rate: &rate})
	if err != nil {
		t.Fatalf("UpdateOwnProfile: %v", err)
	}
	if *mentor.Title != "Staff engineer" || mentor.Rate != 2500 {
		t.Fatalf("unexpected mentor %+v", mentor)
	}

	negative := int64(-1)
	long := strings.Repeat("x", maxTitleLength+1)
	tests := []struct {
		name  string
		input UpdateMentorInput
	}{
		{name: "negative rate", input: UpdateMentorInput{Rate: &negative}},
		{name: "long title", input: UpdateMentorInput{Title: &long}},
		{name: "empty update", input: UpdateMentorInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.UpdateOwnProfile(ctx, mentorUserID, tt.input); !errors.Is(err, apperr.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}

	if _, err := service.UpdateOwnProfile(ctx, 999, UpdateMentorInput{Rate: &rate}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMentorServiceApprovalWorkflow(t *testing.T) {
	ctx := context.Background()
	_, service := newMentorFixture(t)

	approved, err := service.Approve(ctx, 11)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if !approved.Bookable() {
		t.Fatalf("expected bookable mentor, got %+v", approved)
	}

	deactivated, err := service.Deactivate(ctx, 11)
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if deactivated.IsActive || !deactivated.Approved {
		t.Fatalf("expected approved but inactive mentor, got %+v", deactivated)
	}

	if _, err := service.Approve(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
