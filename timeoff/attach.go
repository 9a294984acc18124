package timeoff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DOCUMENT ATTACHMENT
// =============================================================================

// DocumentAttacher stores supporting documents for leave records. Attach and
// Remove run after the leave transaction commits; their errors are never
// fatal to the leave operation.
type DocumentAttacher interface {
	Attach(ctx context.Context, rec LeaveRecord, employee Employee, sourcePath string) (*Document, error)
	Remove(ctx context.Context, doc Document) error
}

// FileAttacher copies documents from Inbox into Dir and records them in
// Store. Source paths are relative to Inbox, or absolute paths inside it.
// Stored files are named {timestamp}_{employeeCode}_{recordID}{ext}.
type FileAttacher struct {
	Dir   string
	Inbox string
	Store Store
	Now   func() time.Time
}

func NewFileAttacher(dir, inbox string, store Store) *FileAttacher {
	return &FileAttacher{Dir: dir, Inbox: inbox, Store: store, Now: time.Now}
}

// errOutsideInbox is returned for source paths that resolve outside Inbox.
var errOutsideInbox = errors.New("document is outside the upload inbox")

// resolve turns sourcePath into a real path under Inbox, following symlinks.
func (a *FileAttacher) resolve(sourcePath string) (string, error) {
	if a.Inbox == "" {
		return "", errors.New("no upload inbox configured")
	}
	inbox, err := filepath.Abs(a.Inbox)
	if err != nil {
		return "", err
	}
	if inbox, err = filepath.EvalSymlinks(inbox); err != nil {
		return "", fmt.Errorf("upload inbox: %w", err)
	}

	path := sourcePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(inbox, path)
	}
	path, err = filepath.EvalSymlinks(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(inbox, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideInbox
	}
	return path, nil
}

func (a *FileAttacher) Attach(ctx context.Context, rec LeaveRecord, employee Employee, sourcePath string) (*Document, error) {
	fail := func(err error) (*Document, error) {
		return nil, &AttachmentError{RecordID: rec.ID, Path: sourcePath, Err: err}
	}

	src, err := a.resolve(sourcePath)
	if err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fail(fmt.Errorf("create documents dir: %w", err))
	}

	code := employee.Code
	if code == "" {
		code = "unknown"
	}
	name := fmt.Sprintf("%s_%s_%s%s", a.Now().Format("20060102150405"), code, rec.ID, filepath.Ext(src))
	dest := filepath.Join(a.Dir, name)

	if err := copyFile(src, dest); err != nil {
		return fail(err)
	}

	doc := &Document{ID: uuid.NewString(), RecordID: rec.ID, Path: dest, UploadedAt: a.Now().UTC()}
	if err := a.Store.SaveDocument(ctx, doc); err != nil {
		os.Remove(dest)
		return fail(fmt.Errorf("save document row: %w", err))
	}
	return doc, nil
}

// Remove deletes the stored file. A file that is already gone is fine.
func (a *FileAttacher) Remove(_ context.Context, doc Document) error {
	if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
