package importer

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func parseText(t *testing.T, text string) []questionSummary {
	t.Helper()
	qs, err := Parse(splitLines(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var out []questionSummary
	for _, q := range qs {
		s := questionSummary{text: q.Text, correct: q.CorrectOption()}
		for _, o := range q.Options {
			s.options = append(s.options, o.Text)
		}
		out = append(out, s)
	}
	return out
}

type questionSummary struct {
	text    string
	options []string
	correct int
}

func TestParsePlusMarker(t *testing.T) {
	qs := parseText(t, "2+2=?\n+4\n5\n3\n")
	if len(qs) != 1 {
		t.Fatalf("questions = %d, want 1", len(qs))
	}
	q := qs[0]
	if q.text != "2+2=?" {
		t.Errorf("text = %q", q.text)
	}
	want := []string{"4", "5", "3"}
	if len(q.options) != len(want) {
		t.Fatalf("options = %v, want %v", q.options, want)
	}
	for i, w := range want {
		if q.options[i] != w {
			t.Errorf("option %d = %q, want %q", i+1, q.options[i], w)
		}
	}
	if q.correct != 1 {
		t.Errorf("correct = %d, want 1", q.correct)
	}
}

func TestParseAnswerMarkerLine(t *testing.T) {
	qs := parseText(t, "Capital of France?\n1) London\n2) Paris\n3) Rome\nAnswer: 2\n")
	if len(qs) != 1 {
		t.Fatalf("questions = %d, want 1", len(qs))
	}
	if qs[0].correct != 2 {
		t.Errorf("correct = %d, want 2", qs[0].correct)
	}
	if qs[0].options[0] != "London" || qs[0].options[1] != "Paris" {
		t.Errorf("enumeration not stripped: %v", qs[0].options)
	}
}

func TestParseRussianAnswerMarker(t *testing.T) {
	qs := parseText(t, "Столица Франции?\nЛондон\nПариж\nОтвет: 2\n")
	if len(qs) != 1 || qs[0].correct != 2 {
		t.Fatalf("got %+v, want one question with correct=2", qs)
	}
}

func TestParseDefaultsFirstCorrect(t *testing.T) {
	qs := parseText(t, "Pick one?\nalpha\nbeta\nNext question?\ngamma\ndelta\n")
	if len(qs) != 2 {
		t.Fatalf("questions = %d, want 2", len(qs))
	}
	for i, q := range qs {
		if q.correct != 1 {
			t.Errorf("question %d correct = %d, want 1", i+1, q.correct)
		}
	}
}

func TestParseOutOfRangeAnswerIgnored(t *testing.T) {
	qs := parseText(t, "Pick one?\nalpha\nbeta\nAnswer: 9\n")
	if len(qs) != 1 || qs[0].correct != 1 {
		t.Fatalf("got %+v, want default first correct", qs)
	}
}

func TestParseDiscardsLinesOutsideQuestion(t *testing.T) {
	qs := parseText(t, "preamble text\nmore noise\nReal question?\nyes\nno\n")
	if len(qs) != 1 {
		t.Fatalf("questions = %d, want 1", len(qs))
	}
	if len(qs[0].options) != 2 {
		t.Errorf("options = %v", qs[0].options)
	}
}

func TestParseFirstMarkerWins(t *testing.T) {
	qs := parseText(t, "Pick one?\nalpha\n+beta\n+gamma\n")
	if len(qs) != 1 {
		t.Fatalf("questions = %d, want 1", len(qs))
	}
	if qs[0].correct != 2 {
		t.Errorf("correct = %d, want 2", qs[0].correct)
	}
	if len(qs[0].options) != 3 {
		t.Errorf("options = %v, want 3 entries", qs[0].options)
	}
}

func TestParseNoQuestions(t *testing.T) {
	_, err := Parse(splitLines("just\nsome\nprose\n"))
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
	_, err = Parse(nil)
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("empty input err = %v, want ErrNoQuestions", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		wantExt string
		wantErr error
	}{
		{"quiz.txt", 100, "txt", nil},
		{"quiz.DOCX", 100, "docx", nil},
		{"quiz.pdf", 100, "pdf", nil},
		{"quiz.exe", 100, "", ErrUnsupportedType},
		{"noextension", 100, "", ErrUnsupportedType},
		{"quiz.txt", MaxFileSize + 1, "", ErrFileTooLarge},
	}
	for _, tc := range tests {
		ext, err := Validate(tc.name, tc.size)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("Validate(%q, %d) err = %v, want %v", tc.name, tc.size, err, tc.wantErr)
			continue
		}
		if ext != tc.wantExt {
			t.Errorf("Validate(%q, %d) ext = %q, want %q", tc.name, tc.size, ext, tc.wantExt)
		}
	}
}

func TestExtractLinesTxt(t *testing.T) {
	lines, err := ExtractLines([]byte("one\r\n\n  two  \n"), "txt")
	if err != nil {
		t.Fatalf("ExtractLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("lines = %v", lines)
	}
}

func TestExtractLinesDocx(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>paragraph?</w:t></w:r></w:p>
<w:p><w:r><w:t>second</w:t></w:r></w:p>
</w:body>
</w:document>`
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	lines, err := ExtractLines(buf.Bytes(), "docx")
	if err != nil {
		t.Fatalf("ExtractLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "First paragraph?" || lines[1] != "second" {
		t.Errorf("lines = %v", lines)
	}
}

func TestExtractLinesDocxRejectsGarbage(t *testing.T) {
	if _, err := ExtractLines([]byte("not a zip"), "docx"); err == nil {
		t.Fatal("expected error for invalid archive")
	}
	if _, err := ExtractLines(nil, "odt"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("err = %v, want unsupported type", err)
	}
}
