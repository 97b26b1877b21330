package domain

import (
	"testing"

	resourcedomain "volunteer-platform/backend/internal/resource/domain"
)

func TestParticipation_Validate(t *testing.T) {
	valid := Participation{ID: "p1", EventID: "e1", UserID: "u1", Status: resourcedomain.StatusPending}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	testCases := []struct {
		name   string
		mutate func(p *Participation)
	}{
		{"missing id", func(p *Participation) { p.ID = "" }},
		{"missing event", func(p *Participation) { p.EventID = "" }},
		{"missing user", func(p *Participation) { p.UserID = "" }},
		{"bad status", func(p *Participation) { p.Status = "maybe" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestParticipation_Resource(t *testing.T) {
	p := Participation{ID: "p1", EventID: "e1", UserID: "u1", CellID: "c1", Status: resourcedomain.StatusAccepted}
	res := p.Resource()
	if res.Class != resourcedomain.ClassParticipation || res.OwnerID != "u1" || res.CellID != "c1" || res.Status != resourcedomain.StatusAccepted {
		t.Errorf("Resource = %+v", res)
	}
}
