/* Copyright 2025 Bauhub Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/pkg/errors"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	return &buf
}

func parseEntry(t *testing.T, raw []byte) map[string]interface{} {
	var got map[string]interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(errors.Wrap(err, "parsing log output"))
	}

	return got
}

func TestWithModule(t *testing.T) {
	buf := captureOutput(t)

	WithModule("mirror").WithFields(Fields{"table": "invoices"}).Error("replication failed")

	got := parseEntry(t, buf.Bytes())
	if got["module"] != "mirror" {
		t.Errorf("module mismatch. got %v, want %v", got["module"], "mirror")
	}
	if got["table"] != "invoices" {
		t.Errorf("table mismatch. got %v, want %v", got["table"], "invoices")
	}
	if got["level"] != LevelError {
		t.Errorf("level mismatch. got %v, want %v", got["level"], LevelError)
	}
	if got["msg"] != "replication failed" {
		t.Errorf("msg mismatch. got %v, want %v", got["msg"], "replication failed")
	}
}

func TestErrorField(t *testing.T) {
	buf := captureOutput(t)

	WithFields(Fields{"err": errors.New("disk full")}).Error("writing record")

	got := parseEntry(t, buf.Bytes())
	if got["err"] != "disk full" {
		t.Errorf("err field mismatch. got %v, want %v", got["err"], "disk full")
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)

	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	Info("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("expected no output below the configured level, got %s", buf.String())
	}

	Warn("should be written")
	if buf.Len() == 0 {
		t.Error("expected output at the configured level")
	}
}
