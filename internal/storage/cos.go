// Package storage uploads finished item directories to Tencent COS and
// exposes listing, deletion and presigned-URL access over the bucket.
package storage

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "ap-beijing"

// Config holds bucket credentials. The service runs fine without them; the
// storage surface just reports itself unconfigured.
type Config struct {
	SecretID  string
	SecretKey string
	Bucket    string
	Region    string
}

// Enabled reports whether the configuration is complete enough to build a
// client.
func (c Config) Enabled() bool {
	return c.SecretID != "" && c.SecretKey != "" && c.Bucket != ""
}

// Folder is a common-prefix entry from a delimited listing.
type Folder struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// File is an object entry from a listing.
type File struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
	URL          string `json:"url"`
}

// Listing is one page of bucket contents under a prefix.
type Listing struct {
	Folders     []Folder `json:"folders"`
	Files       []File   `json:"files"`
	IsTruncated bool     `json:"is_truncated"`
	NextMarker  string   `json:"next_marker"`
}

// UploadedFile is the per-file outcome of a folder upload.
type UploadedFile struct {
	File  string `json:"file"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// UploadResult aggregates a folder upload.
type UploadResult struct {
	Total    int            `json:"total"`
	Uploaded int            `json:"uploaded"`
	Files    []UploadedFile `json:"files"`
}

// Client wraps the COS SDK for this service's layout: objects live under
// {uploader}/{title}/ mirroring the local download tree.
type Client struct {
	cfg    Config
	cli    *cos.Client
	logger *log.Logger
}

// New builds a storage client, or nil when the config is incomplete.
func New(cfg Config, logger *log.Logger) *Client {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	bucketURL, err := url.Parse(fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region))
	if err != nil {
		logger.Printf("storage: invalid bucket url: %v", err)
		return nil
	}

	cli := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})
	return &Client{cfg: cfg, cli: cli, logger: logger}
}

// ObjectURL returns the public URL of a key.
func (c *Client) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.cos.%s.myqcloud.com/%s", c.cfg.Bucket, c.cfg.Region, key)
}

// UploadFile uploads a single local file and returns its object URL.
func (c *Client) UploadFile(ctx context.Context, localPath, key string) (string, error) {
	if _, err := c.cli.Object.PutFromFile(ctx, key, localPath, nil); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return c.ObjectURL(key), nil
}

// UploadFolder walks an item directory and uploads every file under
// {uploader}/{title}/{relative path}. Per-file failures are collected, not
// escalated.
func (c *Client) UploadFolder(ctx context.Context, dir, uploader, title string) (*UploadResult, error) {
	result := &UploadResult{}
	base := uploader + "/" + title

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := base + "/" + filepath.ToSlash(rel)

		result.Total++
		uploaded := UploadedFile{File: rel}
		if objURL, err := c.UploadFile(ctx, path, key); err != nil {
			c.logger.Printf("storage: %v", err)
			uploaded.Error = err.Error()
		} else {
			uploaded.URL = objURL
			result.Uploaded++
		}
		result.Files = append(result.Files, uploaded)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return result, nil
}

// List returns one delimited page of the bucket under prefix.
func (c *Client) List(ctx context.Context, prefix, marker string, maxKeys int) (*Listing, error) {
	res, _, err := c.cli.Bucket.Get(ctx, &cos.BucketGetOptions{
		Prefix:    prefix,
		Delimiter: "/",
		Marker:    marker,
		MaxKeys:   maxKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}

	listing := &Listing{
		Folders:     []Folder{},
		Files:       []File{},
		IsTruncated: res.IsTruncated,
		NextMarker:  res.NextMarker,
	}
	for _, cp := range res.CommonPrefixes {
		if cp == "" {
			continue
		}
		parts := strings.Split(strings.TrimSuffix(cp, "/"), "/")
		listing.Folders = append(listing.Folders, Folder{
			Path: cp,
			Name: parts[len(parts)-1],
		})
	}
	for _, obj := range res.Contents {
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		parts := strings.Split(obj.Key, "/")
		listing.Files = append(listing.Files, File{
			Key:          obj.Key,
			Name:         parts[len(parts)-1],
			Size:         obj.Size,
			LastModified: obj.LastModified,
			URL:          c.ObjectURL(obj.Key),
		})
	}
	return listing, nil
}

// DeleteFolder removes every object under a prefix and returns the count.
func (c *Client) DeleteFolder(ctx context.Context, prefix string) (int, error) {
	var toDelete []cos.Object
	marker := ""
	for {
		res, _, err := c.cli.Bucket.Get(ctx, &cos.BucketGetOptions{
			Prefix:  prefix,
			Marker:  marker,
			MaxKeys: 1000,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
		}
		for _, obj := range res.Contents {
			toDelete = append(toDelete, cos.Object{Key: obj.Key})
		}
		if !res.IsTruncated {
			break
		}
		marker = res.NextMarker
	}

	if len(toDelete) == 0 {
		return 0, fmt.Errorf("folder %q is empty or does not exist", prefix)
	}

	_, _, err := c.cli.Object.DeleteMulti(ctx, &cos.ObjectDeleteMultiOptions{
		Quiet:   true,
		Objects: toDelete,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete folder %q: %w", prefix, err)
	}
	return len(toDelete), nil
}

// DeleteFile removes a single object.
func (c *Client) DeleteFile(ctx context.Context, key string) error {
	if _, err := c.cli.Object.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// PresignedURL issues a time-limited GET URL for a key.
func (c *Client) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := c.cli.Object.GetPresignedURL(ctx, http.MethodGet, key, c.cfg.SecretID, c.cfg.SecretKey, expires, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %q: %w", key, err)
	}
	return u.String(), nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.cfg.Bucket }

// Region returns the configured region.
func (c *Client) Region() string { return c.cfg.Region }
