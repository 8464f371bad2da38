// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m15lab/classbridge/internal/models"
)

// Class kinds guessed from timetable text.
const (
	KindLecture  = "lecture"
	KindSeminar  = "seminar"
	KindPractice = "practice"
	KindUnknown  = "unknown"
)

// Timetable text uses both ":" and "." as clock separators and en-dash
// or hyphen between start and end.
var (
	timeRangeRe = regexp.MustCompile(`(\d{1,2}[:.]\d{2})\s*(?:–|-)\s*(\d{1,2}[:.]\d{2})`)
	dateRe      = regexp.MustCompile(`(\d{1,2})[.\-](\d{1,2})[.\-](\d{2,4})`)
)

var (
	lectureWords  = []string{"лекц", "lecture"}
	seminarWords  = []string{"семинар", "сем ", "seminar"}
	practiceWords = []string{"практик", "лаб", "practice", "lab"}
)

// Candidate is a structured event candidate extracted from timetable
// text. Candidates are previews for the admin UI to confirm, not stored
// events.
type Candidate struct {
	Page  int               `json:"page"`
	Raw   string            `json:"raw"`
	Kind  string            `json:"kind"`
	Start *models.ClockTime `json:"start,omitempty"`
	End   *models.ClockTime `json:"end,omitempty"`
	Date  *models.CivilDate `json:"date,omitempty"`
}

// NormalizeText collapses all whitespace runs into single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(text, "\r", " ")), " ")
}

// GuessKind classifies a timetable text block by keyword.
func GuessKind(text string) string {
	low := strings.ToLower(text)
	for _, w := range lectureWords {
		if strings.Contains(low, w) {
			return KindLecture
		}
	}
	for _, w := range seminarWords {
		if strings.Contains(low, w) {
			return KindSeminar
		}
	}
	for _, w := range practiceWords {
		if strings.Contains(low, w) {
			return KindPractice
		}
	}
	return KindUnknown
}

// ExtractTimes finds the first start-end time range in the text. Either
// value is nil when absent or unparseable.
func ExtractTimes(text string) (start, end *models.ClockTime) {
	m := timeRangeRe.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	if c, err := models.ParseClockTime(strings.ReplaceAll(m[1], ".", ":")); err == nil {
		start = &c
	}
	if c, err := models.ParseClockTime(strings.ReplaceAll(m[2], ".", ":")); err == nil {
		end = &c
	}
	return start, end
}

// ExtractDate finds the first day.month.year date in the text. Two-digit
// years are taken as 2000-based. Impossible dates return nil.
func ExtractDate(text string) *models.CivilDate {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	return &models.CivilDate{Year: year, Month: time.Month(month), Day: day}
}

// ExtractCandidates splits already-extracted page text into blocks and
// builds a candidate per non-empty block. Page numbers are 1-based.
func ExtractCandidates(pages []string) []Candidate {
	var out []Candidate
	for pnum, pageText := range pages {
		for _, block := range strings.Split(pageText, "\n\n") {
			txt := NormalizeText(block)
			if txt == "" {
				continue
			}
			start, end := ExtractTimes(txt)
			out = append(out, Candidate{
				Page:  pnum + 1,
				Raw:   txt,
				Kind:  GuessKind(txt),
				Start: start,
				End:   end,
				Date:  ExtractDate(txt),
			})
		}
	}
	return out
}
