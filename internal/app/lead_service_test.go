package app_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"lead_qualification_bot/internal/app"
	"lead_qualification_bot/internal/domain/participant"
)

const managerID = int64(777)

func completedParticipant(id int64) *participant.Participant {
	answers := make(map[int]string)
	for step := 1; step <= 9; step++ {
		answers[step] = "ответ"
	}
	return &participant.Participant{
		ID:                id,
		Username:          sql.NullString{String: "lead_user", Valid: true},
		RegisteredAt:      time.Now(),
		Answers:           answers,
		Phone:             sql.NullString{String: "+79991234567", Valid: true},
		Comments:          sql.NullString{String: "звонить вечером", Valid: true},
		Qualified:         sql.NullBool{Bool: true, Valid: true},
		SurveyCompleted:   true,
		SurveyCompletedAt: sql.NullTime{Time: time.Now(), Valid: true},
	}
}

func newLeadEnv() (*app.LeadService, *fakeRepo, *fakeGateway) {
	repo := newFakeRepo()
	gateway := &fakeGateway{}
	svc := app.NewLeadService(repo, gateway, managerID, testLogger())
	return svc, repo, gateway
}

func TestNotifyNewLeadDeliversSnapshot(t *testing.T) {
	svc, repo, gateway := newLeadEnv()
	repo.participants[200] = completedParticipant(200)

	if err := svc.NotifyNewLead(context.Background(), 200); err != nil {
		t.Fatalf("NotifyNewLead: %v", err)
	}
	sent := gateway.sentTexts()
	if len(sent) != 1 {
		t.Fatalf("expected one manager message, got %d", len(sent))
	}
	for _, want := range []string{"TG ID: 200", "Username: lead_user", "+79991234567", "звонить вечером"} {
		if !strings.Contains(sent[0], want) {
			t.Errorf("lead snapshot missing %q:\n%s", want, sent[0])
		}
	}
}

func TestNotifyNewLeadRejectsIncomplete(t *testing.T) {
	svc, repo, gateway := newLeadEnv()
	p := completedParticipant(201)
	p.Phone = sql.NullString{}
	repo.participants[201] = p

	if err := svc.NotifyNewLead(context.Background(), 201); !errors.Is(err, app.ErrLeadNotReady) {
		t.Fatalf("expected ErrLeadNotReady, got %v", err)
	}
	if len(gateway.sentTexts()) != 0 {
		t.Error("incomplete lead must not reach the manager")
	}
}

func TestNotifyNewLeadSkipsDuplicate(t *testing.T) {
	svc, repo, gateway := newLeadEnv()
	repo.participants[202] = completedParticipant(202)

	ctx := context.Background()
	if err := svc.NotifyNewLead(ctx, 202); err != nil {
		t.Fatalf("first NotifyNewLead: %v", err)
	}
	if err := svc.NotifyNewLead(ctx, 202); err != nil {
		t.Fatalf("duplicate NotifyNewLead: %v", err)
	}
	if got := len(gateway.sentTexts()); got != 1 {
		t.Errorf("expected a single handoff message, got %d", got)
	}
}

func TestClaimAuthorization(t *testing.T) {
	svc, repo, _ := newLeadEnv()
	repo.participants[203] = completedParticipant(203)
	if err := svc.NotifyNewLead(context.Background(), 203); err != nil {
		t.Fatalf("NotifyNewLead: %v", err)
	}

	if _, err := svc.Claim(context.Background(), 203, managerID+1); !errors.Is(err, app.ErrClaimNotAuthorized) {
		t.Fatalf("expected ErrClaimNotAuthorized, got %v", err)
	}

	snapshot, err := svc.Claim(context.Background(), 203, managerID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !strings.Contains(snapshot, "TG ID: 203") {
		t.Errorf("claim snapshot missing participant: %s", snapshot)
	}
}

func TestClaimTwiceRejected(t *testing.T) {
	svc, repo, _ := newLeadEnv()
	repo.participants[204] = completedParticipant(204)
	if err := svc.NotifyNewLead(context.Background(), 204); err != nil {
		t.Fatalf("NotifyNewLead: %v", err)
	}

	if _, err := svc.Claim(context.Background(), 204, managerID); err != nil {
		t.Fatalf("first Claim: %v", err)
	}
	if _, err := svc.Claim(context.Background(), 204, managerID); !errors.Is(err, app.ErrLeadAlreadyClaimed) {
		t.Fatalf("expected ErrLeadAlreadyClaimed, got %v", err)
	}
}

func TestClaimAfterRestartAccepted(t *testing.T) {
	// The handoff happened before a process restart: the bookkeeping entry is
	// gone but the durable participant record is not.
	svc, repo, _ := newLeadEnv()
	repo.participants[205] = completedParticipant(205)

	snapshot, err := svc.Claim(context.Background(), 205, managerID)
	if err != nil {
		t.Fatalf("Claim after restart: %v", err)
	}
	if !strings.Contains(snapshot, "TG ID: 205") {
		t.Errorf("claim snapshot missing participant: %s", snapshot)
	}
}
