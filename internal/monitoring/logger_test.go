package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op, which must not call the previous logger
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestSetOutput(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var buf bytes.Buffer
	SetOutput(&buf, "mku16")
	Logf("packed %d values", 3)

	got := buf.String()
	if !strings.HasPrefix(got, "[mku16] ") {
		t.Errorf("output %q missing tool prefix", got)
	}
	if !strings.Contains(got, "packed 3 values") {
		t.Errorf("output %q missing message", got)
	}
}

func TestSetOutput_NoTool(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var buf bytes.Buffer
	SetOutput(&buf, "")
	Logf("hello")
	if strings.HasPrefix(buf.String(), "[") {
		t.Errorf("unexpected prefix in %q", buf.String())
	}
}
