// v0
// cmd/farmmonitor/main_test.go
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"
)

func TestSimulatePrintsOneLinePerReading(t *testing.T) {
	var buf bytes.Buffer
	if err := simulate(context.Background(), &buf, 5, 0, rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	sc := bufio.NewScanner(&buf)
	lines := 0
	for sc.Scan() {
		var got struct {
			Temperature float64         `json:"temperature"`
			Status      json.RawMessage `json:"status"`
		}
		if err := json.Unmarshal(sc.Bytes(), &got); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if got.Temperature < 15 || got.Temperature > 40 {
			t.Fatalf("temperature out of range: %v", got.Temperature)
		}
		if !strings.Contains(string(got.Status), "overall") {
			t.Fatalf("status missing overall: %s", got.Status)
		}
		lines++
	}
	if lines != 5 {
		t.Fatalf("expected 5 lines, got %d", lines)
	}
}

func TestSimulateCommandRejectsZeroCount(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"simulate", "--count", "0"})
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for zero count")
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&buf)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(buf.String(), "farmmonitor") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
