package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		query   string
		want    core.Month
		wantErr bool
	}{
		{"", core.CurrentMonth(), false},
		{"month=2024-02", core.Month{Year: 2024, Month: time.February}, false},
		{"month=%202024-12%20", core.Month{Year: 2024, Month: time.December}, false},
		{"month=2024-13", core.Month{}, true},
		{"month=02/2024", core.Month{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/view?"+tt.query, nil)
			got, err := parseMonth(r)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("parseMonth = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/view?category=saude", nil)
	if c, err := parseCategory(r); err != nil || c != core.Saude {
		t.Fatalf("parseCategory = %q, %v", c, err)
	}
	r = httptest.NewRequest(http.MethodGet, "/api/view", nil)
	if c, err := parseCategory(r); err != nil || c != "" {
		t.Fatalf("empty category = %q, %v", c, err)
	}
	r = httptest.NewRequest(http.MethodGet, "/api/view?category=Viagem", nil)
	if _, err := parseCategory(r); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected unknown category, got %v", err)
	}
}

func TestDraftRequestAmountForms(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{`12.5`, "12.5"},
		{`"12,50"`, "12.5"},
		{`"R$ 1.234,56"`, "1234.56"},
		{`"1234.567"`, "1234.57"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			body := `{"description":"x","amount":` + tt.amount + `,"kind":"p","category":"Lazer","due_date":"2024-01-10"}`
			r := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(body))
			var req draftRequest
			if err := decodeJSON(r, &req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			d, err := req.toDraft()
			if err != nil {
				t.Fatalf("toDraft: %v", err)
			}
			if !d.Amount.Equal(decimal.RequireFromString(tt.want)) || d.Kind != core.Payable {
				t.Fatalf("unexpected draft %+v", d)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		malformed bool
	}{
		{"trailing data", `{"description":"x"} {}`, true},
		{"wrong type", `{"paid":"yes"}`, true},
		{"bad amount string", `{"amount":"-3"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(tt.body))
			var req draftRequest
			err := decodeJSON(r, &req)
			if err == nil {
				t.Fatal("expected an error")
			}
			if errors.Is(err, errMalformed) != tt.malformed {
				t.Fatalf("malformed=%v, got %v", tt.malformed, err)
			}
			if !tt.malformed && !core.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPatchRequest(t *testing.T) {
	desc := "  Internet\x07 "
	cat := "servicos"
	due := "2024-05-31"
	paid := true
	req := patchRequest{Description: &desc, Category: &cat, DueDate: &due, Paid: &paid}
	p, err := req.toPatch()
	if err != nil {
		t.Fatalf("toPatch: %v", err)
	}
	if *p.Description != "Internet" || *p.Category != core.Servicos || p.DueDate.String() != "2024-05-31" || !*p.Paid || p.Amount != nil {
		t.Fatalf("unexpected patch %+v", p)
	}

	bad := "2024-02-30"
	if _, err := (patchRequest{DueDate: &bad}).toPatch(); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
