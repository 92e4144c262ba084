package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// tsvDoc builds a minimal Tesseract TSV document from (height, conf, text)
// word rows.
func tsvDoc(rows [][3]string) string {
	var b strings.Builder
	b.WriteString("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "5\t1\t1\t1\t1\t1\t10\t10\t40\t%s\t%s\t%s\n", r[0], r[1], r[2])
	}
	return b.String()
}

func TestHeadingSignal(t *testing.T) {
	t.Run("no text", func(t *testing.T) {
		s := headingSignal(tsvDoc(nil))
		if s.LargeHeading || s.Blocks != 0 {
			t.Errorf("unexpected signal: %+v", s)
		}
	})

	t.Run("uniform body text", func(t *testing.T) {
		s := headingSignal(tsvDoc([][3]string{
			{"12", "90", "wiadomości"},
			{"13", "88", "z"},
			{"12", "91", "miasta"},
		}))
		if s.LargeHeading {
			t.Errorf("expected no heading, got %+v", s)
		}
		if s.MedianHeight != 12 {
			t.Errorf("expected median 12, got %v", s.MedianHeight)
		}
	})

	t.Run("absolute height floor", func(t *testing.T) {
		s := headingSignal(tsvDoc([][3]string{
			{"55", "95", "GAZETA"},
			{"54", "93", "LWOWSKA"},
			{"12", "90", "treść"},
		}))
		if !s.LargeHeading || s.Blocks != 2 {
			t.Errorf("unexpected signal: %+v", s)
		}
	})

	t.Run("ratio against median", func(t *testing.T) {
		// 45px is under the absolute floor but more than 4x the 10px median.
		s := headingSignal(tsvDoc([][3]string{
			{"45", "95", "TYTUŁ"},
			{"10", "90", "a"},
			{"10", "90", "b"},
			{"10", "90", "c"},
		}))
		if !s.LargeHeading || s.Blocks != 1 {
			t.Errorf("unexpected signal: %+v", s)
		}
	})

	t.Run("low confidence and blank words ignored", func(t *testing.T) {
		s := headingSignal(tsvDoc([][3]string{
			{"80", "40", "smudge"},
			{"90", "95", " "},
			{"12", "90", "treść"},
		}))
		if s.LargeHeading {
			t.Errorf("expected no heading, got %+v", s)
		}
	})
}

func TestTesseractClient_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tesseract" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("bad multipart request: %v", err)
		}
		var opts map[string]any
		if err := json.Unmarshal([]byte(r.FormValue("options")), &opts); err != nil {
			t.Errorf("bad options field: %v", err)
		}
		if opts["format"] != "tsv" {
			t.Errorf("expected tsv format, got %v", opts["format"])
		}

		resp := tesseractResponse{}
		resp.Data.Stdout = tsvDoc([][3]string{{"60", "95", "KURJER"}})
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewTesseractClient(TesseractConfig{URL: srv.URL})
	signal, err := c.Analyze(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if !signal.LargeHeading || signal.Blocks != 1 {
		t.Errorf("unexpected signal: %+v", signal)
	}
}

func TestTesseractClient_EngineFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := tesseractResponse{}
		resp.Data.ExitCode = 1
		resp.Data.Stderr = "could not initialize language pol"
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewTesseractClient(TesseractConfig{URL: srv.URL})
	if _, err := c.Analyze(context.Background(), []byte("jpeg-bytes")); err == nil {
		t.Error("expected error for non-zero engine exit code")
	}
}
