package cloud

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/config"
	"github.com/dmitrijs2005/cryptkeeper/internal/filex"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

// s3API is the part of *s3.Client the storage uses.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Storage maps the folder tree onto an S3 bucket. Folders are zero-byte
// marker objects whose key ends in "/"; every id is an object key, so a
// child's id always starts with its parent's.
type S3Storage struct {
	client s3API
	bucket string
}

var _ Storage = (*S3Storage)(nil)

// NewS3Storage builds a client from cfg. With static keys configured the
// session token, if any, comes from tokens; without keys the SDK's default
// credential chain is used.
func NewS3Storage(ctx context.Context, cfg *config.Config, tokens TokenProvider) (*S3Storage, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("%w: s3_bucket is not set", common.ErrConfig)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	switch {
	case cfg.S3AccessKey != "" && tokens != nil:
		opts = append(opts, awsconfig.WithCredentialsProvider(tokenCredentials{
			accessKey: cfg.S3AccessKey,
			secretKey: cfg.S3SecretKey,
			tokens:    tokens,
		}))
	case cfg.S3AccessKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
		// retries are driven by the synchronizer
		o.RetryMaxAttempts = 1
	})

	return &S3Storage{client: client, bucket: cfg.S3Bucket}, nil
}

func folderKey(parentID, name string) string {
	return parentID + name + "/"
}

func (s *S3Storage) FolderExists(ctx context.Context, parentID, name string) (string, bool, error) {
	key := folderKey(parentID, name)

	ok, err := s.exists(ctx, key)
	if err != nil {
		return "", false, classify("folder exists", err)
	}
	if ok {
		return key, true, nil
	}

	// a prefix with objects under it is a folder even without a marker
	ok, err = s.hasPrefix(ctx, key)
	if err != nil {
		return "", false, classify("folder exists", err)
	}
	if ok {
		return key, true, nil
	}
	return "", false, nil
}

func (s *S3Storage) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	key := folderKey(parentID, name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return "", classify("create folder "+key, err)
	}
	return key, nil
}

func (s *S3Storage) Upload(ctx context.Context, localPath, parentID string) (string, error) {
	key := parentID + filepath.Base(localPath)
	if err := s.put(ctx, key, localPath); err != nil {
		return "", err
	}
	return key, nil
}

func (s *S3Storage) Replace(ctx context.Context, remoteID, localPath string) (string, error) {
	if err := s.put(ctx, remoteID, localPath); err != nil {
		return "", err
	}
	return remoteID, nil
}

func (s *S3Storage) put(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", common.ErrIO, localPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return classify("put object "+key, err)
	}
	return nil
}

func (s *S3Storage) Download(ctx context.Context, remoteID, destPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(remoteID),
	})
	if err != nil {
		return classify("get object "+remoteID, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return classify("read object "+remoteID, err)
	}

	if err := filex.WriteAtomic(destPath, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	return nil
}

func (s *S3Storage) IDExists(ctx context.Context, remoteID string) (bool, error) {
	if remoteID == "" {
		return false, nil
	}

	ok, err := s.exists(ctx, remoteID)
	if err == nil && !ok && strings.HasSuffix(remoteID, "/") {
		ok, err = s.hasPrefix(ctx, remoteID)
	}
	if err != nil {
		return false, classify("id exists "+remoteID, err)
	}
	return ok, nil
}

func (s *S3Storage) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *S3Storage) hasPrefix(ctx context.Context, prefix string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0, nil
}

// Walk lists every key under rootID and folds them into a tree. Folders
// implied by deeper keys appear even without a marker object.
func (s *S3Storage) Walk(ctx context.Context, rootID string) (*models.RemoteNode, error) {
	name := path.Base(strings.TrimSuffix(rootID, "/"))
	if rootID == "" {
		name = s.bucket
	}
	root := &models.RemoteNode{ID: rootID, Name: name, IsDir: true}
	dirs := map[string]*models.RemoteNode{rootID: root}

	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(rootID),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify("list "+rootID, err)
		}
		for _, obj := range page.Contents {
			addKey(dirs, rootID, aws.ToString(obj.Key))
		}
	}
	return root, nil
}

func addKey(dirs map[string]*models.RemoteNode, rootID, key string) {
	rel := strings.TrimPrefix(key, rootID)
	if rel == "" {
		return
	}

	isDir := strings.HasSuffix(rel, "/")
	parts := strings.Split(strings.TrimSuffix(rel, "/"), "/")

	parent := dirs[rootID]
	prefix := rootID
	for i, part := range parts {
		last := i == len(parts)-1
		if last && !isDir {
			parent.Children = append(parent.Children, &models.RemoteNode{ID: key, Name: part})
			return
		}

		prefix += part + "/"
		dir, ok := dirs[prefix]
		if !ok {
			dir = &models.RemoteNode{ID: prefix, Name: part, IsDir: true}
			dirs[prefix] = dir
			parent.Children = append(parent.Children, dir)
		}
		parent = dir
	}
}
