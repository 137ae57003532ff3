// Package cts scans Android CTS test_result.xml files.
//
// The files are large, so the reader streams line-oriented events instead
// of building a document tree: a Module event for each <Module>, a
// TestCase for each <TestCase>, and a Test with its pass/fail outcome for
// each <Test>.
package cts

import (
	"bufio"
	"io"
	"regexp"
)

// EventKind distinguishes the three element kinds the scanner reports.
type EventKind int

const (
	ModuleEvent EventKind = iota
	TestCaseEvent
	TestEvent
)

// Event is one element encountered while scanning.
type Event struct {
	Kind   EventKind
	Name   string
	Passed bool // meaningful only for TestEvent
}

var (
	modulePattern   = regexp.MustCompile(`<Module name="([^"]*)"`)
	testCasePattern = regexp.MustCompile(`<TestCase name="([^"]*)"`)
	testPattern     = regexp.MustCompile(`<Test result="(pass|fail)" name="([^"]*)"`)
)

// Scan reads a test_result.xml stream and calls fn for every module, test
// case and test encountered, in document order. Scanning stops early if
// fn returns false.
func Scan(r io.Reader, fn func(Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := modulePattern.FindStringSubmatch(line); m != nil {
			if !fn(Event{Kind: ModuleEvent, Name: m[1]}) {
				return nil
			}
			continue
		}
		if m := testCasePattern.FindStringSubmatch(line); m != nil {
			if !fn(Event{Kind: TestCaseEvent, Name: m[1]}) {
				return nil
			}
			continue
		}
		if m := testPattern.FindStringSubmatch(line); m != nil {
			if !fn(Event{Kind: TestEvent, Name: m[2], Passed: m[1] == "pass"}) {
				return nil
			}
		}
	}
	return scanner.Err()
}

// Summary aggregates scan results per module.
type Summary struct {
	Modules int `json:"modules"`
	Tests   int `json:"tests"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
}

// Summarize scans the whole stream and counts modules and test outcomes.
func Summarize(r io.Reader) (Summary, error) {
	var s Summary
	err := Scan(r, func(ev Event) bool {
		switch ev.Kind {
		case ModuleEvent:
			s.Modules++
		case TestEvent:
			s.Tests++
			if ev.Passed {
				s.Passed++
			} else {
				s.Failed++
			}
		}
		return true
	})
	return s, err
}
