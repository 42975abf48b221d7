package submitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/segscore/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// fakeService scores "good" archives 0.9 and rejects everything else.
type fakeService struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/dice-score":
		f.mu.Lock()
		f.keys = append(f.keys, r.Header.Get("Idempotency-Key"))
		f.mu.Unlock()

		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"missing_file","message":"A file is required"}`))
			return
		}
		data, _ := io.ReadAll(file)
		switch string(data) {
		case "good":
			_ = json.NewEncoder(w).Encode(Result{ID: "1", Name: r.FormValue("name"), Score: 0.9})
		case "boom":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":"internal_error","message":"An internal error occurred while processing the request"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"key_mismatch","message":"Key mismatch"}`))
		}
	case "/leaderboard":
		_ = json.NewEncoder(w).Encode(Podium{
			Top:    []Entry{{Rank: 1, Name: "alice", Score: 0.9}},
			Others: []Entry{{Rank: 2, Name: "bob", Score: 0.4}},
		})
	default:
		http.NotFound(w, r)
	}
}

func writeFiles(t *testing.T, contents map[string]string) []string {
	dir := t.TempDir()
	var paths []string
	for name, body := range contents {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestClient(t *testing.T) {
	Convey("Given a client for a running service", t, func() {
		fake := &fakeService{}
		srv := httptest.NewServer(fake)
		defer srv.Close()
		client := NewClient(srv.URL+"/", time.Second)
		ctx := context.Background()

		Convey("When a good archive is submitted with a key", func() {
			paths := writeFiles(t, map[string]string{"pred.npz": "good"})
			res, err := client.Submit(ctx, "alice", paths[0], "k-1")

			Convey("Then the score is decoded and the key sent", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 0.9)
				So(res.Name, ShouldEqual, "alice")
				So(fake.keys, ShouldResemble, []string{"k-1"})
			})
		})

		Convey("When the service rejects the archive", func() {
			paths := writeFiles(t, map[string]string{"pred.npz": "bad"})
			_, err := client.Submit(ctx, "alice", paths[0], "")

			Convey("Then an APIError carries the message", func() {
				var apiErr *APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusBadRequest)
				So(apiErr.Code, ShouldEqual, "key_mismatch")
				So(apiErr.Rejected(), ShouldBeTrue)
			})
		})

		Convey("When the archive does not exist", func() {
			_, err := client.Submit(ctx, "alice", filepath.Join(t.TempDir(), "nope.npz"), "")

			Convey("Then the open error is returned", func() {
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
			})
		})

		Convey("Then the leaderboard is decoded", func() {
			board, err := client.Leaderboard(ctx)
			So(err, ShouldBeNil)
			So(board.Top[0].Name, ShouldEqual, "alice")
			So(board.Others, ShouldHaveLength, 1)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given several archives", t, func() {
		fake := &fakeService{}
		srv := httptest.NewServer(fake)
		defer srv.Close()
		paths := writeFiles(t, map[string]string{"a.npz": "good", "b.npz": "bad", "c.npz": "boom", "d.npz": "good"})

		var out bytes.Buffer
		stats, err := Run(context.Background(), &Config{
			BaseURL:     srv.URL,
			Name:        "alice",
			Files:       paths,
			Workers:     2,
			Timeout:     time.Second,
			Idempotent:  true,
			Leaderboard: true,
		}, &out)

		Convey("Then every outcome is counted and the table printed", func() {
			So(err, ShouldBeNil)
			So(stats.Submitted, ShouldEqual, 4)
			So(stats.Accepted, ShouldEqual, 2)
			So(stats.Rejected, ShouldEqual, 1)
			So(stats.Failed, ShouldEqual, 1)
			So(stats.Best, ShouldEqual, 0.9)
			So(out.String(), ShouldContainSubstring, "RANK")
			So(out.String(), ShouldContainSubstring, "bob")

			seen := map[string]bool{}
			for _, k := range fake.keys {
				So(k, ShouldNotBeEmpty)
				So(seen[k], ShouldBeFalse)
				seen[k] = true
			}
		})
	})

	Convey("Given no archives", t, func() {
		_, err := Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1"}, io.Discard)

		Convey("Then the run refuses", func() {
			So(errors.Is(err, ErrNoFiles), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable service", t, func() {
		paths := writeFiles(t, map[string]string{"a.npz": "good"})
		_, err := Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1", Files: paths, Timeout: time.Second}, io.Discard)

		Convey("Then the transport error is returned", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
