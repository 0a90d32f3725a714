// Package archive keeps the raw bytes of every submitted workbook in a blob
// store so a dataset can be traced back to its source file.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"pdmtracker/internal/blob"
	"pdmtracker/pkg/domain"
)

// Prefix is the key namespace of archived workbooks.
const Prefix = "workbooks/"

// ContentType is stored with every archived workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const metaSubmission = "submission"

var (
	// ErrNotFound is returned when no workbook is archived for a submission.
	ErrNotFound = fmt.Errorf("archive: submission %w", domain.ErrNotFound)
	// ErrInvalidID is returned for submission ids that cannot name a folder.
	ErrInvalidID = errors.New("archive: invalid submission id")
)

// Option configures an Archive.
type Option func(*Archive)

// WithLinkExpiry sets how long listed download links stay valid on drivers
// that sign them.
func WithLinkExpiry(d time.Duration) Option {
	return func(a *Archive) {
		if d > 0 {
			a.linkExpiry = d
		}
	}
}

// Archive stores workbooks under workbooks/<submissionID>/<fileName>.
type Archive struct {
	blobs      blob.Store
	linkExpiry time.Duration
}

// New returns an archive over blobs.
func New(blobs blob.Store, opts ...Option) (*Archive, error) {
	if blobs == nil {
		return nil, errors.New("archive: blob store required")
	}
	a := &Archive{blobs: blobs, linkExpiry: blob.DefaultLinkExpiry}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func objectKey(submissionID, fileName string) (string, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" || strings.ContainsAny(submissionID, `/\`) || strings.Contains(submissionID, "..") {
		return "", fmt.Errorf("%w %q", ErrInvalidID, submissionID)
	}
	name := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		name = "workbook.xlsx"
	}
	return Prefix + submissionID + "/" + name, nil
}

// Store archives content for a submission.
func (a *Archive) Store(ctx context.Context, submissionID, fileName string, content []byte) error {
	key, err := objectKey(submissionID, fileName)
	if err != nil {
		return err
	}
	_, err = a.blobs.Put(ctx, key, bytes.NewReader(content), blob.PutOptions{
		ContentType: ContentType,
		Metadata:    map[string]string{metaSubmission: submissionID},
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", submissionID, err)
	}
	return nil
}

// List returns archived submissions, newest first. Each entry carries a
// download link when the blob driver can issue one.
func (a *Archive) List(ctx context.Context) ([]domain.Submission, error) {
	infos, err := a.blobs.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	out := make([]domain.Submission, 0, len(infos))
	for _, info := range infos {
		sub := submissionFrom(info)
		link, err := a.blobs.DownloadURL(ctx, info.Key, blob.LinkOptions{Expiry: a.linkExpiry, FileName: sub.FileName})
		switch {
		case err == nil:
			sub.URL = link
		case errors.Is(err, blob.ErrUnsupported):
		case errors.Is(err, blob.ErrNotFound):
			continue
		default:
			return nil, fmt.Errorf("link %s: %w", info.Key, err)
		}
		out = append(out, sub)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StoredAt.After(out[j].StoredAt) })
	return out, nil
}

// Open returns the archived workbook of a submission. The caller closes the reader.
func (a *Archive) Open(ctx context.Context, submissionID string) (domain.Submission, io.ReadCloser, error) {
	if _, err := objectKey(submissionID, ""); err != nil {
		return domain.Submission{}, nil, err
	}
	infos, err := a.blobs.List(ctx, Prefix+submissionID+"/")
	if err != nil {
		return domain.Submission{}, nil, fmt.Errorf("list archive: %w", err)
	}
	if len(infos) == 0 {
		return domain.Submission{}, nil, fmt.Errorf("%w: %s", ErrNotFound, submissionID)
	}
	info, rc, err := a.blobs.Get(ctx, infos[0].Key)
	if errors.Is(err, blob.ErrNotFound) {
		return domain.Submission{}, nil, fmt.Errorf("%w: %s", ErrNotFound, submissionID)
	}
	if err != nil {
		return domain.Submission{}, nil, err
	}
	return submissionFrom(info), rc, nil
}

func submissionFrom(info blob.Info) domain.Submission {
	rest := strings.TrimPrefix(info.Key, Prefix)
	id, name, _ := strings.Cut(rest, "/")
	if v := info.Metadata[metaSubmission]; v != "" {
		id = v
	}
	return domain.Submission{
		ID:       id,
		FileName: name,
		Size:     info.Size,
		StoredAt: info.LastModified,
	}
}
