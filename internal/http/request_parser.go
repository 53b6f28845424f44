package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

// maxBodyBytes bounds request bodies read by the JSON handlers.
const maxBodyBytes = 64 << 10

// errMalformed marks a body that is not valid JSON for the target type.
var errMalformed = errors.New("malformed request body")

// parseMonth reads ?month=YYYY-MM, defaulting to the current month.
func parseMonth(r *http.Request) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.CurrentMonth(), nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return core.Month{}, core.NewValidationError("month", err)
	}
	return m, nil
}

// parseCategory reads ?category=; empty means every category.
func parseCategory(r *http.Request) (core.Category, error) {
	v := strings.TrimSpace(r.URL.Query().Get("category"))
	if v == "" {
		return "", nil
	}
	c, err := core.ParseCategory(v)
	if err != nil {
		return "", core.NewValidationError("category", err)
	}
	return c, nil
}

// amountField accepts either a JSON number or a user-entered string such as
// "1.234,56".
type amountField struct {
	set   bool
	value decimal.Decimal
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	a.set = true
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := core.ParseAmount(s)
		if err != nil {
			return core.NewValidationError("amount", err)
		}
		a.value = d
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return core.NewValidationError("amount", core.ErrInvalidAmount)
	}
	a.value = d
	return nil
}

type draftRequest struct {
	Description string           `json:"description"`
	Amount      amountField      `json:"amount"`
	Kind        string           `json:"kind"`
	Category    string           `json:"category"`
	DueDate     string           `json:"due_date"`
	Paid        bool             `json:"paid"`
	Recurrence  *core.Recurrence `json:"recurrence,omitempty"`
}

// toDraft converts the request into a draft. Only parsing happens here;
// Draft.Validate runs in the service.
func (req draftRequest) toDraft() (core.Draft, error) {
	d := core.Draft{
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount.value,
		Paid:        req.Paid,
		Recurrence:  req.Recurrence,
	}
	if !req.Amount.set {
		return core.Draft{}, core.NewValidationError("amount", core.ErrInvalidAmount)
	}

	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		return core.Draft{}, core.NewValidationError("kind", err)
	}
	d.Kind = kind

	cat, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.Draft{}, core.NewValidationError("category", err)
	}
	d.Category = cat

	if strings.TrimSpace(req.DueDate) == "" {
		return core.Draft{}, core.NewValidationError("due_date", core.ErrMissingDueDate)
	}
	due, err := core.ParseDate(req.DueDate)
	if err != nil {
		return core.Draft{}, core.NewValidationError("due_date", err)
	}
	d.DueDate = due
	return d, nil
}

type patchRequest struct {
	Description *string     `json:"description"`
	Amount      amountField `json:"amount"`
	Category    *string     `json:"category"`
	DueDate     *string     `json:"due_date"`
	Paid        *bool       `json:"paid"`
}

func (req patchRequest) toPatch() (core.Patch, error) {
	var p core.Patch
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		p.Description = &desc
	}
	if req.Amount.set {
		amount := req.Amount.value
		p.Amount = &amount
	}
	if req.Category != nil {
		cat, err := core.ParseCategory(*req.Category)
		if err != nil {
			return core.Patch{}, core.NewValidationError("category", err)
		}
		p.Category = &cat
	}
	if req.DueDate != nil {
		due, err := core.ParseDate(*req.DueDate)
		if err != nil {
			return core.Patch{}, core.NewValidationError("due_date", err)
		}
		p.DueDate = &due
	}
	p.Paid = req.Paid
	return p, nil
}

// decodeJSON reads a single JSON object into dst. Validation errors raised by
// field decoders pass through; anything else is reported as errMalformed.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errMalformed)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
