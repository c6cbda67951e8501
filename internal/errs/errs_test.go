package errs

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithStackCapturesOnce(t *testing.T) {
	root := errors.New("property store offline")
	wrapped := WithStack(Wrap(root, "complete valuation"))
	if !errors.Is(wrapped, root) {
		t.Fatalf("WithStack() lost the chain")
	}
	if again := WithStack(Wrap(wrapped, "run due valuations")); !errors.Is(again, root) {
		t.Fatalf("second WithStack() lost the chain")
	} else if _, ok := again.(*StackError); ok {
		t.Fatalf("second WithStack() wrapped again")
	}
	if WithStack(nil) != nil {
		t.Fatalf("WithStack(nil) != nil")
	}

	value := Loggable(wrapped).LogValue()
	fields := map[string]slog.Value{}
	for _, attr := range value.Group() {
		fields[attr.Key] = attr.Value
	}
	if fields["message"].String() != "complete valuation: property store offline" {
		t.Fatalf("message = %v", fields["message"])
	}
	if !strings.Contains(fields["stack"].String(), "TestWithStackCapturesOnce") {
		t.Fatalf("stack = %q", fields["stack"].String())
	}
}

type friendlyErr struct{}

func (friendlyErr) Error() string       { return "zip rejected" }
func (friendlyErr) UserMessage() string { return "Please enter a valid ZIP code" }

func TestUserMessageFallsBack(t *testing.T) {
	if got := UserMessage(Wrap(friendlyErr{}, "validate"), "fallback"); got != "Please enter a valid ZIP code" {
		t.Fatalf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("boom"), "fallback"); got != "fallback" {
		t.Fatalf("UserMessage() = %q", got)
	}
	if got := ErrorChainStrings(Wrapf(errors.New("boom"), "quote %s", "q-1")); len(got) != 2 || got[0] != "quote q-1: boom" {
		t.Fatalf("ErrorChainStrings() = %v", got)
	}
}
