package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/ledger"
	"contas/internal/metrics"
	"contas/internal/store"
)

// Notifier announces committed entry changes to other processes.
type Notifier interface {
	PublishEntryChanged(ctx context.Context, msg *amqp.EntryChangedMessage) error
}

// EntryService validates user actions and applies them to the entry store.
// Change notifications are best effort: a failed publish is logged and the
// action still succeeds.
type EntryService struct {
	store    store.EntryStore
	notifier Notifier
}

func NewEntryService(st store.EntryStore, notifier Notifier) *EntryService {
	return &EntryService{
		store:    st,
		notifier: notifier,
	}
}

// CreateResult lists the IDs persisted by a create request. Warnings name the
// installments that could not be stored; those already stored are kept.
type CreateResult struct {
	IDs      []string `json:"ids"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r CreateResult) Partial() bool { return len(r.Warnings) > 0 }

// Create persists a single entry or, for a recurring draft, every installment.
func (s *EntryService) Create(ctx context.Context, d core.Draft) (CreateResult, error) {
	if err := d.Validate(); err != nil {
		metrics.Mutations.WithLabelValues("create", metrics.OutcomeInvalid).Inc()
		return CreateResult{}, err
	}

	if !d.IsTemplate() {
		id, err := s.store.Create(ctx, d.Entry())
		if err != nil {
			metrics.Mutations.WithLabelValues("create", metrics.Outcome(err, core.IsValidation)).Inc()
			return CreateResult{}, storeErr("create", "", err)
		}
		metrics.Mutations.WithLabelValues("create", metrics.OutcomeOK).Inc()
		s.notify(ctx, id, amqp.OpCreated)
		return CreateResult{IDs: []string{id}}, nil
	}

	installments, err := ledger.Expand(d)
	if err != nil {
		metrics.Mutations.WithLabelValues("create", metrics.OutcomeInvalid).Inc()
		return CreateResult{}, err
	}

	var (
		result CreateResult
		errs   []error
	)
	for _, e := range installments {
		id, err := s.store.Create(ctx, e)
		if err != nil {
			label := e.Installment.Label()
			slog.WarnContext(ctx, "Failed to store installment, continuing",
				"installment", label,
				"description", e.Description,
				"due_date", e.DueDate.String(),
				"error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("installment %s (%s) not saved: %v", label, e.DueDate, err))
			errs = append(errs, err)
			continue
		}
		result.IDs = append(result.IDs, id)
		metrics.InstallmentsCreated.Inc()
		s.notify(ctx, id, amqp.OpCreated)
	}

	switch {
	case len(result.IDs) == 0:
		metrics.Mutations.WithLabelValues("create", metrics.OutcomeError).Inc()
		return result, &core.PersistenceError{Op: "create", Err: errors.Join(errs...)}
	case result.Partial():
		metrics.Mutations.WithLabelValues("create", metrics.OutcomePartial).Inc()
	default:
		metrics.Mutations.WithLabelValues("create", metrics.OutcomeOK).Inc()
	}

	slog.InfoContext(ctx, "Recurring entry expanded",
		"description", d.Description,
		"kind", d.Kind,
		"category", d.Category,
		"amount", d.Amount.StringFixed(2),
		"installments", len(installments),
		"created", len(result.IDs))

	return result, nil
}

func (s *EntryService) Get(ctx context.Context, id string) (core.Entry, error) {
	if err := validateID(id); err != nil {
		return core.Entry{}, err
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Entry{}, storeErr("get", id, err)
	}
	return e, nil
}

// Update applies a partial edit to one entry.
func (s *EntryService) Update(ctx context.Context, id string, p core.Patch) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		metrics.Mutations.WithLabelValues("update", metrics.OutcomeInvalid).Inc()
		return err
	}
	if err := s.store.Update(ctx, id, p); err != nil {
		metrics.Mutations.WithLabelValues("update", metrics.Outcome(err, core.IsValidation)).Inc()
		return storeErr("update", id, err)
	}
	metrics.Mutations.WithLabelValues("update", metrics.OutcomeOK).Inc()
	s.notify(ctx, id, amqp.OpUpdated)
	return nil
}

func (s *EntryService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		metrics.Mutations.WithLabelValues("delete", metrics.OutcomeError).Inc()
		return storeErr("delete", id, err)
	}
	metrics.Mutations.WithLabelValues("delete", metrics.OutcomeOK).Inc()
	s.notify(ctx, id, amqp.OpDeleted)
	return nil
}

// TogglePaid reads the stored paid flag and writes back its negation on the
// same record. Applying it twice restores the original state.
func (s *EntryService) TogglePaid(ctx context.Context, id string) (core.Entry, error) {
	if err := validateID(id); err != nil {
		return core.Entry{}, err
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		metrics.Mutations.WithLabelValues("toggle", metrics.OutcomeError).Inc()
		return core.Entry{}, storeErr("toggle", id, err)
	}

	patch := core.SetPaid(!e.Paid)
	if err := s.store.Update(ctx, id, patch); err != nil {
		metrics.Mutations.WithLabelValues("toggle", metrics.OutcomeError).Inc()
		return core.Entry{}, storeErr("toggle", id, err)
	}
	metrics.Mutations.WithLabelValues("toggle", metrics.OutcomeOK).Inc()

	e = patch.Apply(e)
	slog.InfoContext(ctx, "Entry payment toggled", "entry_id", id, "paid", e.Paid)
	s.notify(ctx, id, amqp.OpToggled)
	return e, nil
}

func (s *EntryService) notify(ctx context.Context, id string, op amqp.ChangeOp) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishEntryChanged(ctx, amqp.NewEntryChangedMessage(id, op)); err != nil {
		metrics.Notifications.WithLabelValues("out", metrics.OutcomeError).Inc()
		slog.ErrorContext(ctx, "Failed to publish entry change",
			"entry_id", id, "op", op, "error", err)
		return
	}
	metrics.Notifications.WithLabelValues("out", metrics.OutcomeOK).Inc()
}

// Close releases the store and the notifier when they hold resources.
func (s *EntryService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.notifier.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %w", errors.Join(errs...))
	}
	return nil
}

// storeErr keeps validation errors raised by the store and wraps the rest.
func storeErr(op, id string, err error) error {
	if core.IsValidation(err) {
		return err
	}
	return core.NewPersistenceError(op, id, err)
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return core.NewValidationError("id", core.ErrEmptyID)
	}
	return nil
}
