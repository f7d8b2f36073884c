// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bukukas/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 4 << 20

// Amount decodes a JSON number or an Indonesian-formatted string such as
// "Rp 50.000" into a decimal.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d, err := core.ParseAmount(s)
		if err != nil {
			return fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
		}
		a.Decimal = d
		return nil
	}
	if err := json.Unmarshal(data, &a.Decimal); err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidAmount, data)
	}
	return nil
}

// Ptr returns the amount as a pointer, or nil for a nil receiver.
func (a *Amount) Ptr() *decimal.Decimal {
	if a == nil {
		return nil
	}
	d := a.Decimal
	return &d
}

// DecodeJSON reads a bounded JSON body into v. Unknown fields are rejected
// when strict is set.
func DecodeJSON(r *http.Request, v any, strict bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return errors.New("request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			return err
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// PathDate reads a YYYY-MM-DD route parameter.
func PathDate(r *http.Request, name string) (core.Date, error) {
	d := core.Date(strings.TrimSpace(chi.URLParam(r, name)))
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

// PathMonth reads a YYYY-MM route parameter.
func PathMonth(r *http.Request, name string) (core.Month, error) {
	m := core.Month(strings.TrimSpace(chi.URLParam(r, name)))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
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
