package product

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// MaxStock is the largest stock a product may carry. It matches the INTEGER
// column of the postgres store.
const MaxStock = math.MaxInt32

var maxStock = decimal.NewFromInt(MaxStock)

var (
	// ErrMissingPayload is returned for an empty or non-object product payload.
	ErrMissingPayload = errors.New("missing the product information")
	// ErrMalformedPayload is returned when the payload is not valid JSON.
	ErrMalformedPayload = errors.New("invalid JSON format")
)

// FieldError describes one invalid payload field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every invalid field of a payload, ordered as the
// fields appear in the product schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid product"
	}
	return "Invalid product " + e.Fields[0].Field
}

// fieldSpec declares how a payload field is read into a Patch.
type fieldSpec struct {
	name   string
	decode func(d *jx.Decoder, p *Patch) (reason string, err error)
}

var schema = []fieldSpec{
	{name: "title", decode: func(d *jx.Decoder, p *Patch) (string, error) { return decodeString(d, &p.Title) }},
	{name: "description", decode: func(d *jx.Decoder, p *Patch) (string, error) { return decodeString(d, &p.Description) }},
	{name: "code", decode: func(d *jx.Decoder, p *Patch) (string, error) { return decodeString(d, &p.Code) }},
	{name: "price", decode: func(d *jx.Decoder, p *Patch) (string, error) { return decodeDecimal(d, &p.Price) }},
	{name: "status", decode: func(d *jx.Decoder, p *Patch) (string, error) { return decodeBool(d, &p.Status) }},
	{name: "stock", decode: func(d *jx.Decoder, p *Patch) (string, error) { return decodeStock(d, &p.Stock) }},
	{name: "category", decode: func(d *jx.Decoder, p *Patch) (string, error) {
		var s *string
		reason, err := decodeString(d, &s)
		if s != nil {
			c := Category(*s)
			p.Category = &c
		}
		return reason, err
	}},
}

// fieldErrors collects the first reason reported for each field.
type fieldErrors map[string]string

func (fe fieldErrors) add(field, reason string) {
	if _, ok := fe[field]; !ok {
		fe[field] = reason
	}
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	out := &ValidationError{}
	for _, rule := range schema {
		if reason, ok := fe[rule.name]; ok {
			out.Fields = append(out.Fields, FieldError{Field: rule.name, Reason: reason})
		}
	}
	return out
}

// DecodeCreate reads a creation payload. Every field must be present and
// valid.
func DecodeCreate(data []byte) (Patch, error) {
	p, errs, err := decodePatch(data)
	if err != nil {
		return Patch{}, err
	}
	p.check(errs, true)
	if err := errs.err(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// DecodeUpdate reads a modification payload. Absent fields are allowed but
// present ones must be valid.
func DecodeUpdate(data []byte) (Patch, error) {
	p, errs, err := decodePatch(data)
	if err != nil {
		return Patch{}, err
	}
	p.check(errs, false)
	if err := errs.err(); err != nil {
		return Patch{}, err
	}
	if p.Empty() {
		return Patch{}, ErrMissingPayload
	}
	return p, nil
}

// ValidateCreate checks a patch built outside of JSON, such as from a form,
// against the creation rules.
func ValidateCreate(p Patch) error {
	errs := fieldErrors{}
	p.check(errs, true)
	return errs.err()
}

func decodePatch(data []byte) (Patch, fieldErrors, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Patch{}, nil, ErrMissingPayload
	}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return Patch{}, nil, ErrMissingPayload
	}

	var (
		p     Patch
		errs  = fieldErrors{}
		total = 0
	)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		total++
		for _, rule := range schema {
			if rule.name != string(key) {
				continue
			}
			reason, err := rule.decode(d, &p)
			if err != nil {
				return err
			}
			if reason != "" {
				errs.add(rule.name, reason)
			}
			return nil
		}
		return d.Skip()
	}); err != nil {
		return Patch{}, nil, fmt.Errorf("decode product payload: %w: %v", ErrMalformedPayload, err)
	}
	if total == 0 {
		return Patch{}, nil, ErrMissingPayload
	}
	return p, errs, nil
}

// check applies value rules to present fields and, when required is set,
// reports absent ones.
func (p Patch) check(errs fieldErrors, required bool) {
	text := func(name string, v *string) {
		switch {
		case v == nil:
			if required {
				errs.add(name, "is required")
			}
		case strings.TrimSpace(*v) == "":
			errs.add(name, "must not be empty")
		}
	}
	text("title", p.Title)
	text("description", p.Description)
	text("code", p.Code)

	switch {
	case p.Price == nil:
		if required {
			errs.add("price", "is required")
		}
	case !p.Price.IsPositive():
		errs.add("price", "must be greater than zero")
	}
	if p.Status == nil && required {
		errs.add("status", "is required")
	}
	switch {
	case p.Stock == nil:
		if required {
			errs.add("stock", "is required")
		}
	case *p.Stock < 0:
		errs.add("stock", "must not be negative")
	case *p.Stock > MaxStock:
		errs.add("stock", fmt.Sprintf("must not exceed %d", MaxStock))
	}
	switch {
	case p.Category == nil:
		if required {
			errs.add("category", "is required")
		}
	case !p.Category.Valid():
		errs.add("category", "must be one of the catalog categories")
	}
}

func decodeString(d *jx.Decoder, dst **string) (string, error) {
	if d.Next() != jx.String {
		return "must be a string", d.Skip()
	}
	s, err := d.Str()
	if err != nil {
		return "", err
	}
	*dst = &s
	return "", nil
}

func decodeBool(d *jx.Decoder, dst **bool) (string, error) {
	if d.Next() != jx.Bool {
		return "must be a boolean", d.Skip()
	}
	v, err := d.Bool()
	if err != nil {
		return "", err
	}
	*dst = &v
	return "", nil
}

func decodeDecimal(d *jx.Decoder, dst **decimal.Decimal) (string, error) {
	if d.Next() != jx.Number {
		return "must be a number", d.Skip()
	}
	n, err := d.Num()
	if err != nil {
		return "", err
	}
	v, err := decimal.NewFromString(string(n))
	if err != nil {
		return "must be a number", nil
	}
	*dst = &v
	return "", nil
}

func decodeStock(d *jx.Decoder, dst **int) (string, error) {
	var v *decimal.Decimal
	if reason, err := decodeDecimal(d, &v); reason != "" || err != nil {
		return reason, err
	}
	if !v.IsInteger() {
		return "must be an integer", nil
	}
	if v.IsNegative() {
		return "must not be negative", nil
	}
	if v.GreaterThan(maxStock) {
		return fmt.Sprintf("must not exceed %d", MaxStock), nil
	}
	n := int(v.IntPart())
	*dst = &n
	return "", nil
}
