// Package uploads accepts poster images, stores them under generated names and
// serves them back from a public path.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"gigmap/internal/metrics"
)

const (
	// FieldName is the multipart field carrying the poster image.
	FieldName = "poster"
	// PublicPrefix is where stored posters are served from.
	PublicPrefix = "/api/uploads/"
	// DefaultMaxBytes caps a single poster at 5 MiB.
	DefaultMaxBytes int64 = 5 << 20

	maxFieldBytes = 64 << 10
	maxParts      = 64
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

var (
	// ErrUnsupportedType rejects files outside the image allow-list.
	ErrUnsupportedType = errors.New("only image files (jpg, jpeg, png, gif) may be uploaded")
	// ErrFileTooLarge rejects posters above the size limit.
	ErrFileTooLarge = errors.New("poster exceeds the maximum upload size")
	// ErrUnexpectedFile rejects files sent under any field other than poster, or more than one poster.
	ErrUnexpectedFile = errors.New("only a single poster file may be uploaded")
	// ErrMalformedForm indicates the request body could not be parsed.
	ErrMalformedForm = errors.New("malformed request body")
)

// Config holds intake settings.
type Config struct {
	Dir      string
	MaxBytes int64
}

// StoredFile describes a poster persisted to the upload directory.
type StoredFile struct {
	Name         string // generated, the permanent storage key
	OriginalName string
	Size         int64
	PublicPath   string
}

// Form is a parsed request body: text values plus at most one poster.
type Form struct {
	Values url.Values
	Poster *StoredFile
}

// Value returns the first value for key.
func (f *Form) Value(key string) string {
	return f.Values.Get(key)
}

// PosterPath returns the public poster path or nil when none was uploaded.
func (f *Form) PosterPath() *string {
	if f.Poster == nil {
		return nil
	}
	p := f.Poster.PublicPath
	return &p
}

// Intake validates, names and stores poster uploads.
type Intake struct {
	dir      string
	maxBytes int64
	logger   zerolog.Logger

	now    func() time.Time
	suffix func() int64
}

// New creates the upload directory (with parents) and returns an Intake for it.
func New(cfg Config, logger zerolog.Logger) (*Intake, error) {
	if cfg.Dir == "" {
		return nil, errors.New("upload directory is required")
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Intake{
		dir:      cfg.Dir,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
		suffix:   func() int64 { return rand.Int64N(1_000_000_000) },
	}, nil
}

// Dir returns the directory posters are written to.
func (in *Intake) Dir() string {
	return in.dir
}

// Parse reads the request body. Multipart bodies are streamed part by part so
// an oversized poster is rejected before it is fully written; JSON and
// urlencoded bodies carry text fields only.
func (in *Intake) Parse(r *http.Request) (*Form, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		return in.parseMultipart(r)
	case "application/json":
		return parseJSON(r.Body)
	default:
		r.Body = http.MaxBytesReader(nil, r.Body, maxFieldBytes*maxParts)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
		}
		return &Form{Values: r.PostForm}, nil
	}
}

func (in *Intake) parseMultipart(r *http.Request) (form *Form, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}

	form = &Form{Values: url.Values{}}
	defer func() {
		if err != nil && form.Poster != nil {
			_ = in.Remove(form.Poster.PublicPath)
			form = nil
		}
	}()

	for parts := 0; ; parts++ {
		if parts >= maxParts {
			return form, fmt.Errorf("%w: too many parts", ErrMalformedForm)
		}

		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return form, fmt.Errorf("%w: %v", ErrMalformedForm, err)
		}

		name := part.FormName()
		switch {
		case name == "":
		case part.FileName() == "":
			value, err := readField(part)
			if err != nil {
				return form, err
			}
			form.Values.Add(name, value)
		case name != FieldName || form.Poster != nil:
			return form, ErrUnexpectedFile
		default:
			stored, err := in.save(part)
			if err != nil {
				return form, err
			}
			form.Poster = stored
		}
		part.Close()
	}
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}
	if len(b) > maxFieldBytes {
		return "", fmt.Errorf("%w: field %q too long", ErrMalformedForm, part.FormName())
	}
	return string(b), nil
}

func parseJSON(body io.Reader) (*Form, error) {
	var payload map[string]any
	if err := json.NewDecoder(io.LimitReader(body, maxFieldBytes*maxParts)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}

	values := url.Values{}
	for k, v := range payload {
		switch v := v.(type) {
		case nil:
		case string:
			values.Set(k, v)
		default:
			values.Set(k, fmt.Sprint(v))
		}
	}
	return &Form{Values: values}, nil
}

// save checks the extension, then copies at most maxBytes+1 bytes to a new
// file. Anything over the limit is discarded along with the partial file.
func (in *Intake) save(part *multipart.Part) (*StoredFile, error) {
	original := part.FileName()
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExtensions[ext] {
		metrics.RecordPosterUpload(metrics.UploadRejectedType, 0)
		in.logger.Warn().Str("filename", original).Msg("rejected poster with unsupported extension")
		return nil, ErrUnsupportedType
	}

	f, name, err := in.create(ext)
	if err != nil {
		return nil, err
	}
	path := f.Name()

	n, err := io.Copy(f, io.LimitReader(part, in.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > in.maxBytes {
		metrics.RecordPosterUpload(metrics.UploadRejectedSize, 0)
		in.logger.Warn().Str("filename", original).Int64("limit", in.maxBytes).Msg("rejected oversized poster")
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("write poster: %w", err)
	}

	metrics.RecordPosterUpload(metrics.UploadAccepted, n)
	in.logger.Info().Str("filename", original).Str("stored_as", name).Int64("size", n).Msg("poster stored")

	return &StoredFile{
		Name:         name,
		OriginalName: original,
		Size:         n,
		PublicPath:   PublicPrefix + name,
	}, nil
}

// create opens a new file named <epoch-ms>-<random><ext>. O_EXCL guarantees an
// existing poster is never overwritten; a clash just draws a new suffix.
func (in *Intake) create(ext string) (*os.File, string, error) {
	const attempts = 5

	var lastErr error
	for i := 0; i < attempts; i++ {
		name := fmt.Sprintf("%d-%d%s", in.now().UnixMilli(), in.suffix(), ext)
		f, err := os.OpenFile(filepath.Join(in.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create poster file: %w", err)
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("create poster file: %w", lastErr)
}

// Remove deletes a stored poster by its public path. Missing files are ignored.
func (in *Intake) Remove(publicPath string) error {
	name := strings.TrimPrefix(publicPath, PublicPrefix)
	if name == publicPath || name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return fmt.Errorf("not a stored poster path: %q", publicPath)
	}

	if err := os.Remove(filepath.Join(in.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove poster: %w", err)
	}
	return nil
}

// Handler serves stored posters. Mount it at PublicPrefix.
func (in *Intake) Handler() http.Handler {
	return http.StripPrefix(PublicPrefix, http.FileServer(fileOnlyFS{http.Dir(in.dir)}))
}

// fileOnlyFS hides directories so the upload folder cannot be listed.
type fileOnlyFS struct {
	fs http.FileSystem
}

func (f fileOnlyFS) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
