package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/common"
	sc "github.com/dmitrijs2005/pmvault/internal/server/config"
	"github.com/dmitrijs2005/pmvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ExportURLTTL is how long a presigned export link stays valid.
const ExportURLTTL = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Export describes an uploaded vault export.
type Export struct {
	Key       string
	URL       string
	Count     int
	ExpiresAt time.Time
}

// exportDocument is the uploaded JSON. Records stay encrypted.
type exportDocument struct {
	UserID      string           `json:"user_id"`
	ExportedAt  time.Time        `json:"exported_at"`
	Credentials []api.Credential `json:"credentials"`
}

type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	now         func() time.Time
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *ExportService {
	return &ExportService{db: db, repomanager: m, config: cfg, now: time.Now}
}

// exportKey builds exports/<user>/<date>/<uuid>.json.
func exportKey(userID string, t time.Time) string {
	return fmt.Sprintf("exports/%s/%s/%s.json", userID, t.UTC().Format(time.DateOnly), uuid.New())
}

func (s *ExportService) getS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export uploads the user's encrypted records to object storage and returns
// a presigned GET link valid for ExportURLTTL.
func (s *ExportService) Export(ctx context.Context, userID string) (*Export, error) {
	list, err := s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	now := s.now()
	doc := exportDocument{UserID: userID, ExportedAt: now.UTC(), Credentials: make([]api.Credential, 0, len(list))}
	for _, c := range list {
		doc.Credentials = append(doc.Credentials, c.API())
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	client, err := s.getS3Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 config: %v", common.ErrorInternal, err)
	}

	key := exportKey(userID, now)
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upload export: %v", common.ErrorInternal, err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ExportURLTTL))
	if err != nil {
		return nil, fmt.Errorf("%w: presign export: %v", common.ErrorInternal, err)
	}

	return &Export{
		Key:       key,
		URL:       req.URL,
		Count:     len(list),
		ExpiresAt: now.Add(ExportURLTTL),
	}, nil
}
