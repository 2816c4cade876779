package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("load activity: %w", &Error{Kind: KindNotFound, Op: "GET /activities/1", Status: 404})

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrServer))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindProvider, KindOf(Wrap(KindProvider, "graph list", errors.New("dial tcp"))))
}

func TestFromStatus(t *testing.T) {
	cases := map[int]Kind{
		400: KindValidation,
		401: KindUnauthenticated,
		403: KindUnauthenticated,
		404: KindNotFound,
		500: KindServer,
		503: KindServer,
		409: KindUnknown,
	}
	for status, want := range cases {
		assert.Equal(t, want, FromStatus(status), "status %d", status)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{
		Kind:   KindValidation,
		Op:     "POST /activities",
		Status: 400,
		Fields: map[string][]string{
			"Title": {"Title is required"},
			"End":   {"End must be after start"},
		},
	}

	assert.Equal(t, []string{"End must be after start", "Title is required"}, err.FieldMessages())
	assert.Equal(t, "POST /activities: validation: status=400: End must be after start; Title is required", err.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindProvider, "graph", cause)

	assert.ErrorIs(t, err, cause)
}
