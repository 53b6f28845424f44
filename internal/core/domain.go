package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Receivable Kind = "receivable"
	Payable    Kind = "payable"
)

const (
	Alimentacao Category = "Alimentação"
	Transporte  Category = "Transporte"
	Moradia     Category = "Moradia"
	Saude       Category = "Saúde"
	Lazer       Category = "Lazer"
	Trabalho    Category = "Trabalho"
	Servicos    Category = "Serviços"
)

// MaxDescriptionLen bounds the description length in characters.
const MaxDescriptionLen = 200

// MaxInstallments caps a single recurring draft at 30 years of monthly installments.
const MaxInstallments = 360

type (
	Kind string

	Category string

	// Installment marks an entry produced by expanding a recurring draft.
	Installment struct {
		Index int `json:"index"`
		Count int `json:"count"`
	}

	// Entry is a single dated cash-flow event.
	Entry struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Kind        Kind            `json:"kind"`
		Category    Category        `json:"category"`
		DueDate     Date            `json:"due_date"`
		Paid        bool            `json:"paid"`
		Installment *Installment    `json:"installment,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Recurrence struct {
		InstallmentCount int `json:"installment_count"`
		IntervalMonths   int `json:"interval_months"`
	}

	// Draft is a candidate entry. A draft carrying a Recurrence is a template
	// and is never persisted as-is.
	Draft struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Kind        Kind            `json:"kind"`
		Category    Category        `json:"category"`
		DueDate     Date            `json:"due_date"`
		Paid        bool            `json:"paid"`
		Recurrence  *Recurrence     `json:"recurrence,omitempty"`
	}

	// Patch is a partial update. Kind and Installment cannot be changed.
	Patch struct {
		Description *string          `json:"description,omitempty"`
		Amount      *decimal.Decimal `json:"amount,omitempty"`
		Category    *Category        `json:"category,omitempty"`
		DueDate     *Date            `json:"due_date,omitempty"`
		Paid        *bool            `json:"paid,omitempty"`
	}
)

var (
	ErrInvalidDay              = errors.New("invalid day")
	ErrInvalidMonth            = errors.New("invalid month")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrEmptyDescription        = errors.New("empty description")
	ErrDescriptionTooLong      = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLen)
	ErrInvalidKind             = errors.New("invalid kind")
	ErrMissingCategory         = errors.New("missing category")
	ErrUnknownCategory         = errors.New("unknown category")
	ErrMissingDueDate          = errors.New("missing due date")
	ErrInvalidInstallmentCount = fmt.Errorf("installment count must be between 1 and %d", MaxInstallments)
	ErrInvalidInterval         = errors.New("interval months must be at least 1")
	ErrInvalidInstallment      = errors.New("invalid installment")
	ErrEmptyPatch              = errors.New("empty patch")
	ErrNotTemplate             = errors.New("draft has no recurrence")
	ErrNotFound                = errors.New("entry not found")
	ErrEmptyID                 = errors.New("empty entry id")
)

var canonicalCategories = []Category{
	Alimentacao,
	Transporte,
	Moradia,
	Saude,
	Lazer,
	Trabalho,
	Servicos,
}

// Categories returns the canonical categories in display order.
func Categories() []Category {
	return slices.Clone(canonicalCategories)
}

func (c Category) Valid() bool {
	return slices.Contains(canonicalCategories, c)
}

func (c Category) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return ErrMissingCategory
	}
	if !c.Valid() {
		return ErrUnknownCategory
	}
	return nil
}

// ParseCategory matches s against the canonical names ignoring case and accents.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingCategory
	}
	key := foldCategory(s)
	for _, c := range canonicalCategories {
		if foldCategory(string(c)) == key {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

var accentFolder = strings.NewReplacer("ç", "c", "ú", "u", "í", "i", "á", "a", "ã", "a", "é", "e", "ê", "e", "ó", "o", "õ", "o")

func foldCategory(s string) string {
	return accentFolder.Replace(strings.ToLower(s))
}

func (k Kind) Validate() error {
	switch k {
	case Receivable, Payable:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ParseKind accepts the canonical names plus the short forms used by the CLI.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receivable", "receber", "r", "in":
		return Receivable, nil
	case "payable", "pagar", "p", "out":
		return Payable, nil
	default:
		return "", ErrInvalidKind
	}
}

func (i Installment) Validate() error {
	if i.Count < 1 || i.Index < 1 || i.Index > i.Count {
		return ErrInvalidInstallment
	}
	return nil
}

// Label renders the installment badge, e.g. "2/12".
func (i Installment) Label() string {
	return fmt.Sprintf("%d/%d", i.Index, i.Count)
}

func (r Recurrence) Validate() error {
	if r.InstallmentCount < 1 || r.InstallmentCount > MaxInstallments {
		return invalid("recurrence.installment_count", ErrInvalidInstallmentCount)
	}
	if r.IntervalMonths < 1 {
		return invalid("recurrence.interval_months", ErrInvalidInterval)
	}
	return nil
}

func validateDescription(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return invalid("description", ErrEmptyDescription)
	}
	if len([]rune(s)) > MaxDescriptionLen {
		return invalid("description", ErrDescriptionTooLong)
	}
	return nil
}

func validateDueDate(d Date) error {
	if d.IsZero() {
		return invalid("due_date", ErrMissingDueDate)
	}
	if err := d.Validate(); err != nil {
		return invalid("due_date", err)
	}
	return nil
}

func (e Entry) Validate() error {
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return invalid("amount", err)
	}
	if err := e.Kind.Validate(); err != nil {
		return invalid("kind", err)
	}
	if err := e.Category.Validate(); err != nil {
		return invalid("category", err)
	}
	if err := validateDueDate(e.DueDate); err != nil {
		return err
	}
	if e.Installment != nil {
		if err := e.Installment.Validate(); err != nil {
			return invalid("installment", err)
		}
	}
	return nil
}

func (d Draft) Validate() error {
	if err := validateDescription(d.Description); err != nil {
		return err
	}
	if err := ValidateAmount(d.Amount); err != nil {
		return invalid("amount", err)
	}
	if err := d.Kind.Validate(); err != nil {
		return invalid("kind", err)
	}
	if err := d.Category.Validate(); err != nil {
		return invalid("category", err)
	}
	if err := validateDueDate(d.DueDate); err != nil {
		return err
	}
	if d.Recurrence != nil {
		return d.Recurrence.Validate()
	}
	return nil
}

// IsTemplate reports whether the draft must be expanded before persistence.
func (d Draft) IsTemplate() bool {
	return d.Recurrence != nil
}

// Entry converts a non-recurring draft into an entry without an ID.
func (d Draft) Entry() Entry {
	return Entry{
		Description: strings.TrimSpace(d.Description),
		Amount:      d.Amount.Round(2),
		Kind:        d.Kind,
		Category:    d.Category,
		DueDate:     d.DueDate,
		Paid:        d.Paid,
	}
}

func (p Patch) IsEmpty() bool {
	return p.Description == nil && p.Amount == nil && p.Category == nil && p.DueDate == nil && p.Paid == nil
}

func (p Patch) Validate() error {
	if p.IsEmpty() {
		return invalid("patch", ErrEmptyPatch)
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := ValidateAmount(*p.Amount); err != nil {
			return invalid("amount", err)
		}
	}
	if p.Category != nil {
		if err := p.Category.Validate(); err != nil {
			return invalid("category", err)
		}
	}
	if p.DueDate != nil {
		if err := validateDueDate(*p.DueDate); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns e with the patch fields overwritten.
func (p Patch) Apply(e Entry) Entry {
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		e.Amount = p.Amount.Round(2)
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.DueDate != nil {
		e.DueDate = *p.DueDate
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	return e
}

// SetPaid builds a patch touching only the paid flag.
func SetPaid(paid bool) Patch {
	return Patch{Paid: &paid}
}
