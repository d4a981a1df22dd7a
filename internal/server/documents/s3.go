package documents

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const (
	folderMarker   = ".folder"
	presignExpires = 15 * time.Minute
)

// objectAPI is the part of *s3.Client used by S3Store.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type S3Config struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
	// Prefix is the parent "folder" every submission is created under.
	Prefix string
}

// S3Store keeps folders as key prefixes in one bucket. A folder is marked by
// an object holding its display name.
type S3Store struct {
	client  objectAPI
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewS3Store builds the S3 client once; the store is shared by all requests.
func NewS3Store(ctx context.Context, c S3Config) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.User,
			c.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		presign: newS3PresignClient(client),
		bucket:  c.Bucket,
		prefix:  strings.Trim(c.Prefix, "/"),
	}, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName turns a display name into a key segment.
func objectName(name string) string {
	s := strings.Trim(unsafeKeyChars.ReplaceAllString(name, "_"), "_")
	if s == "" {
		return "unnamed"
	}
	return s
}

func (s *S3Store) CreateFolder(ctx context.Context, name string) (Folder, error) {
	key := fmt.Sprintf("%s/%s-%s/", s.prefix, objectName(name), uuid.NewString())
	if s.prefix == "" {
		key = strings.TrimPrefix(key, "/")
	}

	if err := s.put(ctx, key+folderMarker, "text/plain; charset=utf-8", []byte(name)); err != nil {
		return Folder{}, err
	}
	return Folder{Name: name, Key: key}, nil
}

func (s *S3Store) Upload(ctx context.Context, folder Folder, f File) (string, error) {
	key := folder.Key + objectName(f.Name)
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	if err := s.put(ctx, key, ct, f.Data); err != nil {
		return "", err
	}
	return key, nil
}

// WriteSheet stores rows as a two-column CSV object named after the sheet.
func (s *S3Store) WriteSheet(ctx context.Context, folder Folder, name string, rows []Row) (string, error) {
	data, err := EncodeSheet(rows)
	if err != nil {
		return "", err
	}
	key := folder.Key + objectName(name) + ".csv"
	if err := s.put(ctx, key, "text/csv; charset=utf-8", data); err != nil {
		return "", err
	}
	return key, nil
}

func (s *S3Store) DeleteFolder(ctx context.Context, folder Folder) error {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(folder.Key),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list %s: %w", folder.Key, err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete %s: %w", folder.Key, err)
		}
	}
	return nil
}

func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpires))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Store) put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// EncodeSheet renders rows as CSV, one key/value pair per line.
func EncodeSheet(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, r := range rows {
		if err := w.Write([]string{r.Key, r.Value}); err != nil {
			return nil, fmt.Errorf("encode sheet: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode sheet: %w", err)
	}
	return buf.Bytes(), nil
}
