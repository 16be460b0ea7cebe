// Package admin is the staff side of the helpdesk: reviewing incidents,
// changing their status and turning resolved new issues into knowledge
// base entries.
package admin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/helpdesk/internal/audit"
	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/kb"
	"github.com/ziadkadry99/helpdesk/internal/logging"
)

// Stats is the dashboard summary.
type Stats struct {
	incident.Stats
	KBEntries int `json:"kb_entries"`
}

// Service performs admin actions and records them in the audit trail.
type Service struct {
	incidents *incident.Store
	kb        *kb.Service
	audit     *audit.Store
	now       func() time.Time
	log       *logging.Logger

	// approveMu serializes approvals so a double click can't register
	// the same incident twice.
	approveMu sync.Mutex
}

// NewService creates an admin service.
func NewService(incidents *incident.Store, kbs *kb.Service, auditStore *audit.Store, logger *logging.Logger) *Service {
	return &Service{
		incidents: incidents,
		kb:        kbs,
		audit:     auditStore,
		now:       time.Now,
		log:       logger.Sub("admin"),
	}
}

// Stats counts incidents by status, pending approvals and KB entries.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.incidents.Stats(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.kb.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Stats: *st, KBEntries: len(entries)}, nil
}

// ListIncidents returns incidents newest first.
func (s *Service) ListIncidents(ctx context.Context, filter incident.ListFilter) ([]incident.Incident, error) {
	out, err := s.incidents.List(ctx, filter)
	if out == nil && err == nil {
		out = []incident.Incident{}
	}
	return out, err
}

// GetIncident returns an incident or incident.ErrNotFound.
func (s *Service) GetIncident(ctx context.Context, id string) (*incident.Incident, error) {
	inc, err := s.incidents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc == nil {
		return nil, fmt.Errorf("%s: %w", id, incident.ErrNotFound)
	}
	return inc, nil
}

// DeleteIncident removes an incident.
func (s *Service) DeleteIncident(ctx context.Context, id, actor string) error {
	inc, err := s.GetIncident(ctx, id)
	if err != nil {
		return err
	}
	if err := s.incidents.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		Actor:         actor,
		Action:        audit.ActionIncidentDelete,
		TargetType:    audit.TargetIncident,
		TargetID:      id,
		Summary:       "Deleted incident " + id,
		PreviousValue: inc.UserDemand,
	})
	return nil
}

// UpdateStatus sets an incident's status. A default admin message follows
// the new status unless staff wrote their own.
func (s *Service) UpdateStatus(ctx context.Context, id string, status incident.Status, actor string) (*incident.Incident, error) {
	inc, err := s.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := inc.Status
	if err := inc.SetStatus(status, s.now()); err != nil {
		return nil, err
	}
	if err := s.incidents.Update(ctx, id, incident.StatusPatch(inc)); err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{
		Actor:         actor,
		Action:        audit.ActionStatusChanged,
		TargetType:    audit.TargetIncident,
		TargetID:      id,
		Summary:       fmt.Sprintf("Status changed to %s", status),
		PreviousValue: string(previous),
		NewValue:      string(status),
	})
	return inc, nil
}

// UpdateAdminMessage sets the message shown to the user when they track
// the incident. An empty message restores the status default.
func (s *Service) UpdateAdminMessage(ctx context.Context, id, message, actor string) (*incident.Incident, error) {
	inc, err := s.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := inc.AdminMessage
	inc.AdminMessage = strings.TrimSpace(message)
	if inc.AdminMessage == "" {
		inc.AdminMessage = incident.DefaultAdminMessage(inc.Status)
	}
	if err := s.incidents.Update(ctx, id, incident.Patch{AdminMessage: &inc.AdminMessage}); err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{
		Actor:         actor,
		Action:        audit.ActionMessageUpdated,
		TargetType:    audit.TargetIncident,
		TargetID:      id,
		Summary:       "Admin message updated",
		PreviousValue: previous,
		NewValue:      inc.AdminMessage,
	})
	return inc, nil
}

// ApproveKBEntry records the solution for an incident awaiting approval.
// An incident that raised a new issue is registered as a KB entry under
// the next free id and linked to it. Approving an incident that no longer
// needs approval changes nothing and reports false.
func (s *Service) ApproveKBEntry(ctx context.Context, id, solutionSteps, actor string) (bool, error) {
	s.approveMu.Lock()
	defer s.approveMu.Unlock()

	inc, err := s.GetIncident(ctx, id)
	if err != nil {
		return false, err
	}
	if !inc.NeedsKBApproval {
		s.log.Info().Str("incident_id", id).Msg("approval skipped, incident already approved")
		return false, nil
	}
	steps := strings.TrimSpace(solutionSteps)
	if steps == "" {
		return false, fmt.Errorf("approving %s: solution steps are required", id)
	}

	var entry *kb.Entry
	if inc.IsNewKBEntry {
		entry, err = s.kb.Register(ctx, kb.Draft{
			UseCase:        inc.UserDemand,
			RequiredInfo:   inc.RequiredInfo,
			Questions:      inc.Questions,
			SolutionSteps:  steps,
			SourceIncident: inc.ID,
		}, kb.SourceApproval)
		if err != nil {
			return false, fmt.Errorf("registering kb entry for %s: %w", id, err)
		}
		inc.KBID = entry.ID
	}

	no := false
	patch := incident.Patch{
		SolutionSteps:   &steps,
		NeedsKBApproval: &no,
		IsNewKBEntry:    &no,
	}
	if entry != nil {
		patch.KBID = &inc.KBID
	}
	if err := s.incidents.Update(ctx, id, patch); err != nil {
		return false, err
	}

	s.record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionKBApproved,
		TargetType: audit.TargetIncident,
		TargetID:   id,
		Summary:    "Solution approved",
		NewValue:   steps,
	})
	if entry != nil {
		s.record(ctx, audit.Entry{
			Actor:      actor,
			Action:     audit.ActionKBEntryAdded,
			TargetType: audit.TargetKBEntry,
			TargetID:   entry.ID,
			Summary:    fmt.Sprintf("Created from incident %s", id),
			NewValue:   entry.UseCase,
		})
	}
	return true, nil
}

// ListKB returns all KB entries.
func (s *Service) ListKB(ctx context.Context) ([]kb.Entry, error) {
	return s.kb.List(ctx)
}

// GetKB returns a KB entry or kb.ErrNotFound.
func (s *Service) GetKB(ctx context.Context, id string) (*kb.Entry, error) {
	return s.kb.Get(ctx, id)
}

// AddKBEntry registers a KB entry written by staff.
func (s *Service) AddKBEntry(ctx context.Context, d kb.Draft, actor string) (*kb.Entry, error) {
	e, err := s.kb.Register(ctx, d, kb.SourceAdmin)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionKBEntryAdded,
		TargetType: audit.TargetKBEntry,
		TargetID:   e.ID,
		Summary:    "Added by staff",
		NewValue:   e.UseCase,
	})
	return e, nil
}

// record writes an audit entry. The action has already happened, so a
// failure is logged rather than returned.
func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, e); err != nil {
		s.log.Error().Err(err).Str("action", string(e.Action)).Str("target_id", e.TargetID).Msg("writing audit entry")
	}
}
