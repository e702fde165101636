package division

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var ErrDivisionByZero = errors.New("division by zero")

type Request struct {
	A int
	B int
}

// Divide performs truncating integer division. Dividing the smallest int by -1
// wraps around to the smallest int instead of panicking.
func Divide(req Request) (int, error) {
	if req.B == 0 {
		return 0, ErrDivisionByZero
	}

	return req.A / req.B, nil
}

type rawRequest struct {
	A string
	B string
}

// ParseRequest reads the a and b query parameters.
func ParseRequest(query url.Values) (Request, error) {
	raw := rawRequest{
		A: query.Get("a"),
		B: query.Get("b"),
	}

	if err := validation.ValidateStruct(&raw,
		validation.Field(&raw.A, validation.Required, validation.By(isDecimalInt)),
		validation.Field(&raw.B, validation.Required, validation.By(isDecimalInt)),
	); err != nil {
		return Request{}, err
	}

	a, err := strconv.Atoi(raw.A)
	if err != nil {
		return Request{}, fmt.Errorf("parse a: %w", err)
	}

	b, err := strconv.Atoi(raw.B)
	if err != nil {
		return Request{}, fmt.Errorf("parse b: %w", err)
	}

	return Request{A: a, B: b}, nil
}

// isDecimalInt accepts anything strconv.Atoi does, including leading zeros
// and an explicit sign.
func isDecimalInt(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := strconv.Atoi(s); err != nil {
		return validation.NewError("validation_is_int", "must be an integer")
	}
	return nil
}

// Query encodes the request as the a and b query parameters.
func (r Request) Query() url.Values {
	q := url.Values{}
	q.Set("a", strconv.Itoa(r.A))
	q.Set("b", strconv.Itoa(r.B))
	return q
}
