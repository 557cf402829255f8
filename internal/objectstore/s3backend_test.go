package objectstore

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
)

type fakeAPIError struct {
	code string
}

func (e fakeAPIError) Error() string       { return e.code }
func (e fakeAPIError) ErrorCode() string   { return e.code }
func (e fakeAPIError) ErrorMessage() string { return e.code }
func (e fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func TestIsNotFoundOrForbidden(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", fakeAPIError{"NoSuchKey"}, true},
		{"forbidden", fakeAPIError{"Forbidden"}, true},
		{"access denied", fakeAPIError{"AccessDenied"}, true},
		{"other api error", fakeAPIError{"InternalError"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isNotFoundOrForbidden(tc.err); got != tc.want {
				t.Errorf("isNotFoundOrForbidden(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
