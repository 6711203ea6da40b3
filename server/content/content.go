// Package content serves media resources over HTTP with byte-range support,
// streaming files referenced by library resource records.
package content

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eems/eems/log"
	"github.com/eems/eems/model"
	"github.com/eems/eems/persistence"
)

const chunkSize = 4096

// Service resolves /content/{id} requests against the resource table.
type Service struct {
	ds *persistence.Store
}

func New(ds *persistence.Store) *Service {
	return &Service{ds: ds}
}

// Routes returns the router mounted at /content.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", s.handleContent)
	r.Head("/{id}", s.handleContent)
	return r
}

// byteRange is a resolved request range within a file of known size.
type byteRange struct {
	first int64
	last  int64
}

func (br byteRange) length() int64 { return br.last - br.first + 1 }

var errUnsatisfiable = errors.New("range not satisfiable")

// parseRange resolves a Range header against size. An empty header means the
// whole file. Only a single bytes= range is supported; anything else is
// unsatisfiable.
func parseRange(header string, size int64) (byteRange, bool, error) {
	if header == "" {
		return byteRange{first: 0, last: size - 1}, false, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return byteRange{}, false, errUnsatisfiable
	}
	firstStr, lastStr, ok := strings.Cut(spec, "-")
	if !ok {
		return byteRange{}, false, errUnsatisfiable
	}

	if firstStr == "" {
		// Suffix range: the final N bytes. An empty file has no final byte.
		n, err := strconv.ParseInt(lastStr, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return byteRange{}, false, errUnsatisfiable
		}
		if n > size {
			n = size
		}
		return byteRange{first: size - n, last: size - 1}, true, nil
	}

	first, err := strconv.ParseInt(firstStr, 10, 64)
	if err != nil || first < 0 || first >= size {
		return byteRange{}, false, errUnsatisfiable
	}
	last := size - 1
	if lastStr != "" {
		last, err = strconv.ParseInt(lastStr, 10, 64)
		if err != nil || last < first {
			return byteRange{}, false, errUnsatisfiable
		}
		if last > size-1 {
			last = size - 1
		}
	}
	return byteRange{first: first, last: last}, true, nil
}

func (s *Service) handleContent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	res, err := s.ds.GetResource(id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Error(r.Context(), "Failed to load resource", err, "id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	f, err := os.Open(res.Location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn(r.Context(), "Resource file missing", "id", id, "path", res.Location)
			http.NotFound(w, r)
			return
		}
		log.Error(r.Context(), "Failed to open resource file", err, "path", res.Location)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Error(r.Context(), "Failed to stat resource file", err, "path", res.Location)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	size := info.Size()

	br, partial, err := parseRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	w.Header().Set("Content-Type", res.MimeType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(br.length(), 10))
	if partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.first, br.last, size))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method == http.MethodHead {
		return
	}

	if _, err := f.Seek(br.first, io.SeekStart); err != nil {
		log.Error(r.Context(), "Failed to seek resource file", err, "path", res.Location)
		panic(http.ErrAbortHandler)
	}
	stream(w, f, br.length(), res.Location)
}

// stream copies length bytes in small chunks so an aborted client does not
// pin a large buffer. Read failures abort the connection; the status line is
// already out, so a clean error response is no longer possible.
func stream(w http.ResponseWriter, f *os.File, length int64, path string) {
	buf := make([]byte, chunkSize)
	for length > 0 {
		n := int64(len(buf))
		if length < n {
			n = length
		}
		read, err := f.Read(buf[:n])
		if read > 0 {
			if _, werr := w.Write(buf[:read]); werr != nil {
				// Client went away; nothing useful left to do.
				return
			}
			length -= int64(read)
		}
		if err != nil {
			if err == io.EOF && length == 0 {
				return
			}
			log.Error("Read failed mid-stream", err, "path", path)
			panic(http.ErrAbortHandler)
		}
	}
}
