package errs

import (
	"errors"
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var testResource = schema.GroupResource{Group: "", Resource: "secrets"}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindValue, "ValueError"},
		{KindOS, "OSError"},
		{KindGit, "GitError"},
		{KindTimeout, "TimeoutError"},
		{KindStopExecution, "StopExecution"},
		{KindPlatform, "PlatformError"},
		{KindTransport, "TransportError"},
		{KindAuth, "AuthError"},
		{KindHTTP, "HTTPError"},
		{KindUnexpected, "Unexpected"},
		{Kind(999), "Unexpected"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	withCause := Value("bad field %q", "name")
	withCause.Cause = errors.New("boom")
	if got, want := withCause.Error(), `ValueError: bad field "name": boom`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noCause := Timeout("deadline exceeded")
	if got, want := noCause.Error(), "TimeoutError: deadline exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Auth("cannot authenticate", cause)
	if !errors.Is(wrapped, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
}

func TestPlatformClassifiesStatusError(t *testing.T) {
	statusErr := apierrors.NewNotFound(testResource, "demo")
	classified := Platform("https://api.example.test", statusErr)

	if classified.Kind != KindPlatform {
		t.Errorf("expected KindPlatform, got %v", classified.Kind)
	}
	if classified.Endpoint != "https://api.example.test" {
		t.Errorf("expected endpoint to be preserved, got %q", classified.Endpoint)
	}
	if classified.Code == 0 {
		t.Errorf("expected a non-zero status code")
	}
}

func TestPlatformFallsBackOnUnclassifiedError(t *testing.T) {
	classified := Platform("https://api.example.test", errors.New("connection refused"))
	if classified.Kind != KindUnexpected {
		t.Errorf("expected KindUnexpected for a non-status error, got %v", classified.Kind)
	}
}

func TestIsAlreadyExistsAndIsNotFound(t *testing.T) {
	notFound := Platform("ep", apierrors.NewNotFound(testResource, "demo"))
	if !IsNotFound(notFound) {
		t.Errorf("expected IsNotFound to be true")
	}
	if IsAlreadyExists(notFound) {
		t.Errorf("expected IsAlreadyExists to be false for a not-found error")
	}

	exists := Platform("ep", apierrors.NewAlreadyExists(testResource, "demo"))
	if !IsAlreadyExists(exists) {
		t.Errorf("expected IsAlreadyExists to be true")
	}
}

func TestAsExtractsClassifiedError(t *testing.T) {
	original := Value("bad input")
	var wrapped error = original

	got, ok := As(wrapped)
	if !ok || got != original {
		t.Errorf("As() = %v, %v, want %v, true", got, ok, original)
	}

	_, ok = As(errors.New("plain error"))
	if ok {
		t.Errorf("As() on a plain error should report false")
	}
}

