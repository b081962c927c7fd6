package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func ptr[T any](v T) *T {
	return &v
}

// handleEntry greets an employee on their first sighting of the day and records
// the entry. An entry time already in the ledger (e.g. from before a restart) is kept.
func (l *Loop) handleEntry(ctx context.Context, rec *database.EmbeddingRecord, now time.Time) error {
	if !l.opts.State.MarkSeen(rec.EmpID, now) {
		return nil
	}

	decision := l.opts.Classifier.ClassifyEntry(rec.Name, now)
	date := now.Format(constants.DateLayout)

	existing, err := l.opts.Store.GetAttendance(ctx, rec.EmpID, date)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("reading attendance of %s: %w", rec.EmpID, err)
	}
	if existing == nil || existing.EntryTime == "" {
		update := database.AttendanceUpdate{
			EntryTime: ptr(now.Format(constants.TimeLayout)),
			Status:    ptr(decision.LedgerStatus()),
		}
		if err := l.opts.Store.RecordAttendance(ctx, rec.EmpID, date, update); err != nil {
			return fmt.Errorf("recording entry of %s: %w", rec.EmpID, err)
		}
	}

	if err := l.opts.Store.LogAttendance(ctx, &database.AttendanceLogEntry{
		EmpID:     rec.EmpID,
		Name:      rec.Name,
		Role:      rec.Role,
		Direction: database.DirectionIn,
		Status:    string(decision.Status),
		Late:      decision.Late,
		LoggedAt:  now,
	}); err != nil {
		return fmt.Errorf("logging entry of %s: %w", rec.EmpID, err)
	}
	l.opts.Metrics.LedgerWrite("entry")

	log.Printf("Entry: %s (%s) late=%v", rec.Name, rec.EmpID, decision.Late)
	l.say(ctx, decision.Message)
	return nil
}

// handleExit applies the exit rules. Corrections are rate limited per employee and
// repeat on later sightings; logout and permission happen on the first sighting only.
func (l *Loop) handleExit(ctx context.Context, rec *database.EmbeddingRecord, now time.Time) error {
	decision := l.opts.Classifier.ClassifyExit(rec.Name, now)
	date := now.Format(constants.DateLayout)

	if decision.Kind == attendance.ExitCorrection {
		l.opts.State.MarkSeen(rec.EmpID, now)
		if !l.opts.State.AllowCorrection(rec.EmpID, now, l.opts.Classifier.Schedule().CorrectionCooldown) {
			return nil
		}
		update := database.AttendanceUpdate{ExitTime: ptr(now.Format(constants.TimeLayout))}
		if err := l.opts.Store.RecordAttendance(ctx, rec.EmpID, date, update); err != nil {
			return fmt.Errorf("correcting exit of %s: %w", rec.EmpID, err)
		}
		l.opts.Metrics.LedgerWrite("correction")
		log.Printf("Exit correction: %s (%s)", rec.Name, rec.EmpID)
		l.say(ctx, decision.Message)
		return nil
	}

	if !l.opts.State.MarkSeen(rec.EmpID, now) {
		return nil
	}

	if decision.Kind == attendance.ExitPermission {
		if !l.opts.State.PermissionLogged(rec.EmpID, now) {
			l.say(ctx, decision.Message)
			return l.capturePermission(ctx, rec, now)
		}
		decision = l.opts.Classifier.Logout(rec.Name, now)
	}

	update := database.AttendanceUpdate{ExitTime: ptr(now.Format(constants.TimeLayout))}
	if err := l.opts.Store.RecordAttendance(ctx, rec.EmpID, date, update); err != nil {
		return fmt.Errorf("recording exit of %s: %w", rec.EmpID, err)
	}
	if err := l.opts.Store.LogAttendance(ctx, &database.AttendanceLogEntry{
		EmpID:     rec.EmpID,
		Name:      rec.Name,
		Role:      rec.Role,
		Direction: database.DirectionOut,
		Status:    string(database.StatusPresent),
		LoggedAt:  now,
	}); err != nil {
		return fmt.Errorf("logging exit of %s: %w", rec.EmpID, err)
	}
	l.opts.Metrics.LedgerWrite("exit")

	log.Printf("Exit: %s (%s)", rec.Name, rec.EmpID)
	l.say(ctx, decision.Message)
	return nil
}

// capturePermission asks for a reason, records it in the permission log and the ledger.
func (l *Loop) capturePermission(ctx context.Context, rec *database.EmbeddingRecord, now time.Time) error {
	l.say(ctx, attendance.ReasonPrompt)
	reason := l.opts.Listener.Listen(ctx, l.opts.ListenTimeout)
	if reason == constants.NotUnderstood {
		l.opts.Metrics.SpeechFailure()
	}

	update := database.AttendanceUpdate{PermissionReason: ptr(reason)}
	if err := l.opts.Store.RecordAttendance(ctx, rec.EmpID, now.Format(constants.DateLayout), update); err != nil {
		return fmt.Errorf("recording permission of %s: %w", rec.EmpID, err)
	}
	if err := l.opts.Store.LogPermission(ctx, &database.PermissionLogEntry{
		EmpID:    rec.EmpID,
		Name:     rec.Name,
		Role:     rec.Role,
		Kind:     database.PermissionKindPermission,
		Reason:   reason,
		LoggedAt: now,
	}); err != nil {
		return fmt.Errorf("logging permission of %s: %w", rec.EmpID, err)
	}
	l.opts.State.MarkPermissionLogged(rec.EmpID, now)
	l.opts.Metrics.LedgerWrite("permission")

	log.Printf("Permission: %s (%s): %s", rec.Name, rec.EmpID, reason)
	l.say(ctx, attendance.PermissionRecorded)
	return nil
}

// recordBreak logs a break for an employee at the entry camera.
func (l *Loop) recordBreak(ctx context.Context, rec *database.EmbeddingRecord, now time.Time) error {
	if err := l.opts.Store.LogPermission(ctx, &database.PermissionLogEntry{
		EmpID:    rec.EmpID,
		Name:     rec.Name,
		Role:     rec.Role,
		Kind:     database.PermissionKindBreak,
		Reason:   constants.BreakReason,
		LoggedAt: now,
	}); err != nil {
		return fmt.Errorf("logging break of %s: %w", rec.EmpID, err)
	}
	l.opts.State.MarkPermissionLogged(rec.EmpID, now)
	l.opts.Metrics.LedgerWrite("break")

	log.Printf("Break: %s (%s)", rec.Name, rec.EmpID)
	l.say(ctx, attendance.BreakRecorded)
	return nil
}
