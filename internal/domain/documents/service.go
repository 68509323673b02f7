package documents

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/core"
	"hrms/internal/platform/storage"
)

// Directory resolves employees and reporting lines.
type Directory interface {
	Lookup(ctx context.Context, id string) (*core.Employee, error)
	IsInChain(ctx context.Context, managerID, employeeID string) (bool, error)
}

type Service struct {
	store     *Store
	blobs     *storage.Local
	directory Directory
	audit     audit.Recorder
	maxBytes  int64
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store *Store, blobs *storage.Local, directory Directory, recorder audit.Recorder, maxBytes int64, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:     store,
		blobs:     blobs,
		directory: directory,
		audit:     recorder,
		maxBytes:  maxBytes,
		log:       log.Named("documents"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// declaredAliases lists declared types accepted for a sniffed type the
// detector cannot tell apart from them.
var declaredAliases = map[string][]string{
	"text/plain": {"text/csv"},
	"application/zip": {
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	},
	"application/octet-stream": {"application/msword", "application/vnd.ms-excel"},
}

func mediaType(raw string) string {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// detectContentType sniffs the first 512 bytes and reconciles the result with
// the declared type. An empty result means the pair is not acceptable.
func detectContentType(declared string, r *bufio.Reader) string {
	head, _ := r.Peek(512)
	sniffed := mediaType(http.DetectContentType(head))
	declared = mediaType(declared)
	if declared == "" || declared == "application/octet-stream" || declared == sniffed {
		if _, ok := allowedContentTypes[sniffed]; ok {
			return sniffed
		}
		return ""
	}
	if slices.Contains(declaredAliases[sniffed], declared) {
		return declared
	}
	return ""
}

func (s *Service) saveFile(ctx context.Context, actor access.Actor, up Upload, kind string, owner *string, allowed func(string) bool, r io.Reader) (*File, error) {
	buffered := bufio.NewReader(r)
	contentType := detectContentType(up.ContentType, buffered)
	if contentType == "" || !allowed(contentType) {
		return nil, apperr.Validation("file", "content does not match an allowed file type")
	}
	name := filepath.Base(strings.TrimSpace(up.Name))
	if name == "" || name == "." || name == "/" {
		name = "upload" + allowedContentTypes[contentType]
	}
	stored, err := s.blobs.Save(buffered, allowedContentTypes[contentType], s.maxBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, apperr.Validation("file", "file exceeds the upload size limit")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "storage_failed", "could not store file", err)
	}
	if stored.Size == 0 {
		_ = s.blobs.Remove(stored.Name)
		return nil, apperr.Validation("file", "is empty")
	}
	f := &File{
		OriginalName:    name,
		StoredName:      stored.Name,
		ContentType:     contentType,
		Size:            stored.Size,
		Checksum:        stored.Checksum,
		Kind:            kind,
		OwnerEmployeeID: owner,
		UploadedBy:      actor.UserID,
	}
	if err := s.store.CreateFile(ctx, f); err != nil {
		_ = s.blobs.Remove(stored.Name)
		return nil, err
	}
	return f, nil
}

func anyAllowed(contentType string) bool {
	_, ok := allowedContentTypes[contentType]
	return ok
}

func imageAllowed(contentType string) bool {
	return anyAllowed(contentType) && strings.HasPrefix(contentType, "image/")
}

// SavePhoto stores an employee photo and returns the file id.
func (s *Service) SavePhoto(ctx context.Context, actor access.Actor, name, contentType string, r io.Reader) (string, error) {
	f, err := s.saveFile(ctx, actor, Upload{Name: name, ContentType: contentType}, KindPhoto, nil, imageAllowed, r)
	if err != nil {
		return "", err
	}
	s.audit.Record(ctx, actor, "documents.file.upload", "file", f.ID, nil, f)
	return f.ID, nil
}

func validateDocument(in DocumentInput) (DocumentInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.ToUpper(strings.TrimSpace(in.Category))
	if in.Category == "" {
		in.Category = CategoryOther
	}
	var fields []apperr.FieldError
	if strings.TrimSpace(in.EmployeeID) == "" {
		fields = append(fields, apperr.FieldError{Field: "employeeId", Reason: "is required"})
	}
	if in.Title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Reason: "is required"})
	}
	if !slices.Contains(Categories, in.Category) {
		fields = append(fields, apperr.FieldError{Field: "category", Reason: "must be one of " + strings.Join(Categories, ", ")})
	}
	if len(fields) > 0 {
		return in, apperr.ValidationFields(fields)
	}
	return in, nil
}

// Upload stores the content and attaches it to the employee as a document.
func (s *Service) Upload(ctx context.Context, actor access.Actor, in DocumentInput, up Upload, r io.Reader) (*Document, error) {
	in, err := validateDocument(in)
	if err != nil {
		return nil, err
	}
	if !actor.IsHR() && !actor.IsEmployee(in.EmployeeID) {
		return nil, apperr.Forbidden("can only upload documents for yourself")
	}
	if _, err := s.directory.Lookup(ctx, in.EmployeeID); err != nil {
		return nil, err
	}
	owner := in.EmployeeID
	f, err := s.saveFile(ctx, actor, up, KindDocument, &owner, anyAllowed, r)
	if err != nil {
		return nil, err
	}
	d := &Document{
		EmployeeID:  in.EmployeeID,
		FileID:      f.ID,
		Title:       in.Title,
		Category:    in.Category,
		Description: strings.TrimSpace(in.Description),
		ExpiresAt:   in.ExpiresAt,
	}
	if err := s.store.CreateDocument(ctx, d); err != nil {
		_ = s.blobs.Remove(f.StoredName)
		_ = s.store.DeleteFile(ctx, f.ID)
		return nil, err
	}
	d.File = f
	s.audit.Record(ctx, actor, "documents.document.upload", "document", d.ID, nil, d)
	return d, nil
}

func (s *Service) canViewEmployee(ctx context.Context, actor access.Actor, employeeID string) (bool, error) {
	if actor.IsHR() || actor.IsEmployee(employeeID) {
		return true, nil
	}
	if actor.EmployeeID == "" {
		return false, nil
	}
	return s.directory.IsInChain(ctx, actor.EmployeeID, employeeID)
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (*Document, error) {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canViewEmployee(ctx, actor, d.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("not allowed to view this document")
	}
	return d, nil
}

// Download opens a file for reading. Photos are readable by anyone signed
// in; document files follow the owning employee's visibility and disappear
// with their document, except for HR.
func (s *Service) Download(ctx context.Context, actor access.Actor, fileID string) (*File, io.ReadCloser, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if f.Kind != KindPhoto && !actor.IsHR() {
		if f.OwnerEmployeeID == nil {
			return nil, nil, apperr.Forbidden("not allowed to download this file")
		}
		ok, err := s.canViewEmployee(ctx, actor, *f.OwnerEmployeeID)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, apperr.Forbidden("not allowed to download this file")
		}
		live, err := s.store.FileInUse(ctx, f.ID)
		if err != nil {
			return nil, nil, err
		}
		if !live {
			return nil, nil, apperr.NotFound("file")
		}
	}
	rc, err := s.blobs.Open(f.StoredName)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "storage_failed", "could not read file", err)
	}
	return f, rc, nil
}

func (s *Service) Delete(ctx context.Context, actor access.Actor, id string) error {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsHR() {
		return apperr.Forbidden("only HR can delete documents")
	}
	if err := s.store.SoftDeleteDocument(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "documents.document.delete", "document", id, d, nil)
	return nil
}

func (s *Service) List(ctx context.Context, actor access.Actor, employeeID, category string, limit, offset int) ([]Document, int64, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	if category != "" && !slices.Contains(Categories, category) {
		return nil, 0, apperr.Validation("category", "must be one of "+strings.Join(Categories, ", "))
	}
	if employeeID == "" && !actor.IsHR() {
		employeeID = actor.EmployeeID
		if employeeID == "" {
			return []Document{}, 0, nil
		}
	}
	if employeeID != "" {
		ok, err := s.canViewEmployee(ctx, actor, employeeID)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, apperr.Forbidden("not allowed to view documents of this employee")
		}
	}
	return s.store.ListDocuments(ctx, employeeID, category, limit, offset)
}

// Expiring lists documents whose expiry falls within the next days days.
func (s *Service) Expiring(ctx context.Context, actor access.Actor, days int) ([]Document, error) {
	if !actor.IsHR() {
		return nil, apperr.Forbidden("only HR can list expiring documents")
	}
	if days <= 0 {
		days = DefaultExpiringDays
	}
	if days > maxExpiringDays {
		return nil, apperr.Validation("days", "must not exceed 365")
	}
	now := s.now()
	return s.store.ExpiringDocuments(ctx, now, now.AddDate(0, 0, days))
}
