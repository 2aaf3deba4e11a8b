// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestJSONHandlerLogsDebug(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(JSONHandler(out))
	logger.Debug("hi there")
	if out.Len() == 0 {
		t.Error("expected non-empty debug log output from JSON handler")
	}
	if !strings.Contains(out.String(), "hi there") {
		t.Errorf("expected output to contain message, got %q", out.String())
	}
}

func TestTerminalHandlerNoColorOnNonTTY(t *testing.T) {
	out := new(bytes.Buffer)
	h := NewTerminalHandler(out) // not an *os.File, so color stays off
	logger := NewLogger(h)
	logger.Info("a message", "foo", "bar")
	have := out.String()
	if !strings.Contains(have, "a message") || !strings.Contains(have, "foo=bar") {
		t.Errorf("unexpected terminal output: %q", have)
	}
}
