// Package storage uploads CEP proof documents and hands back an opaque
// reference. The core never interprets the reference.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// ProofStorage stores proof files for CEP submissions.
type ProofStorage interface {
	// UploadProof stores the file and returns its reference.
	UploadProof(ctx context.Context, r io.Reader, fileName string) (string, error)
	// DeleteProof removes a file previously returned by UploadProof.
	DeleteProof(ctx context.Context, fileRef string) error
}

type cloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage reads CLOUDINARY_URL (or CLOUDINARY_CLOUD_NAME) from the environment.
func NewCloudinaryStorage(folder string) (ProofStorage, error) {
	cld, err := cloudinary.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	if cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME"); cloudName != "" {
		cld.Config.Cloud.CloudName = cloudName
	}

	return &cloudinaryStorage{cld: cld, folder: folder}, nil
}

func (s *cloudinaryStorage) UploadProof(ctx context.Context, r io.Reader, fileName string) (string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     proofID(fileName),
		ResourceType: "auto", // proofs may be PDFs as well as images
		Overwrite:    api.Bool(false),
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload proof to cloudinary: %w", err)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	return resp.SecureURL, nil
}

func (s *cloudinaryStorage) DeleteProof(ctx context.Context, fileRef string) error {
	publicID := publicIDFromURL(fileRef)
	if publicID == "" {
		return fmt.Errorf("could not extract public ID from %q", fileRef)
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   publicID,
		Invalidate: api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete proof from cloudinary: %w", err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy returned %q", resp.Result)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// proofID is a collision-free public ID that keeps a readable stem of the name.
func proofID(fileName string) string {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	stem = strings.Trim(unsafeChars.ReplaceAllString(stem, "_"), "_")
	if len(stem) > 40 {
		stem = stem[:40]
	}
	if stem == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "-" + stem
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// publicIDFromURL turns .../upload/v123/folder/file.pdf into folder/file.
func publicIDFromURL(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(u.Path, "/")
	for i, p := range parts {
		if p != "upload" {
			continue
		}
		rest := parts[i+1:]
		if len(rest) > 0 && versionSegment.MatchString(rest[0]) {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return ""
		}
		joined := strings.Join(rest, "/")
		return strings.TrimSuffix(joined, filepath.Ext(joined))
	}
	return ""
}
