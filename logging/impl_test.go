package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("goal reached", "x", 1.5)
	logger.Debugw("cycle", "n", 3)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entry := logs.All()[0]
	test.That(t, entry.Message, test.ShouldEqual, "goal reached")
	test.That(t, entry.ContextMap()["x"], test.ShouldEqual, 1.5)
	test.That(t, logs.FilterMessageSnippet("cycle").Len(), test.ShouldEqual, 1)
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Warnw("odd", "dangling")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].ContextMap()["dangling"], test.ShouldNotBeNil)
}

func TestSubloggerName(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("planner")
	logger.AddAppender(NewWriterAppender(&buf))
	sub := logger.Sublogger("safety")
	sub.Info("hello")

	line := buf.String()
	test.That(t, line, test.ShouldContainSubstring, "planner.safety")
	test.That(t, line, test.ShouldContainSubstring, "INFO")
	test.That(t, line, test.ShouldContainSubstring, "logging/impl_test.go")
	test.That(t, line, test.ShouldContainSubstring, "hello")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("lvl")
	logger.AddAppender(NewWriterAppender(&buf))
	logger.SetLevel(WARN)

	logger.Info("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.CDebugw(EnableDebugMode(context.Background(), ""), "forced")
	test.That(t, buf.String(), test.ShouldContainSubstring, "forced")

	buf.Reset()
	logger.Errorw("kept", "err", "boom")
	test.That(t, buf.String(), test.ShouldContainSubstring, `{"err":"boom"}`)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, level.UnmarshalJSON([]byte(`"warn"`)), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
}

func TestDebugModeContext(t *testing.T) {
	test.That(t, IsDebugMode(context.Background()), test.ShouldBeFalse)
	ctx := EnableDebugMode(context.Background(), "trace")
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	test.That(t, DebugTag(ctx), test.ShouldEqual, "trace")
	test.That(t, DebugTag(EnableDebugMode(context.Background(), "")), test.ShouldHaveLength, 6)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.log")
	appender, closer := NewFileAppender(path)
	logger := NewBlankLogger("file")
	logger.AddAppender(appender)
	logger.Infow("written", "n", 1)
	test.That(t, closer.Close(), test.ShouldBeNil)

	//nolint:gosec
	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Contains(string(contents), "written"), test.ShouldBeTrue)
}
