// Package awsiam issues short-lived AWS credentials for rotating-credential
// connector runs, one credential set per configured role.
package awsiam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultSessionSeconds = 3600
)

// CredentialSet is one short-lived credential issue. Sets expire quickly and
// are never cached or reused once consumed.
type CredentialSet struct {
	RoleARN         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// Source produces an ordered, lazily-issued sequence of credential sets.
// Next returns false once the sequence is exhausted.
type Source interface {
	Next(ctx context.Context) (CredentialSet, bool, error)
}

type stsAPI interface {
	AssumeRole(context.Context, *sts.AssumeRoleInput, ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// Options configure the STS-backed credential source.
type Options struct {
	Region          string
	RoleARNs        []string
	SessionName     string
	DurationSeconds int32
	ExternalID      string
	AccessKeyID     string
	SecretAccessKey string
}

// STSSource assumes each configured role in order, issuing one credential set
// per call to Next.
type STSSource struct {
	client   stsAPI
	roleARNs []string
	session  string
	duration int32
	external string
	index    int
}

func New(ctx context.Context, opts Options) (*STSSource, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		return nil, errors.New("aws region is required")
	}
	if len(opts.RoleARNs) == 0 {
		return nil, errors.New("at least one iam role arn is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: defaultHTTPTimeout}),
	}
	if strings.TrimSpace(opts.AccessKeyID) != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(opts.AccessKeyID),
			strings.TrimSpace(opts.SecretAccessKey),
			"",
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewWithClient(sts.NewFromConfig(cfg), opts)
}

// NewWithClient builds a source over an existing STS client. Used by tests.
func NewWithClient(client stsAPI, opts Options) (*STSSource, error) {
	if client == nil {
		return nil, errors.New("sts client is required")
	}
	arns := make([]string, 0, len(opts.RoleARNs))
	for _, arn := range opts.RoleARNs {
		if arn = strings.TrimSpace(arn); arn != "" {
			arns = append(arns, arn)
		}
	}
	if len(arns) == 0 {
		return nil, errors.New("at least one iam role arn is required")
	}

	session := strings.TrimSpace(opts.SessionName)
	if session == "" {
		session = fmt.Sprintf("syncbridge-%d", time.Now().Unix())
	}
	duration := opts.DurationSeconds
	if duration <= 0 {
		duration = defaultSessionSeconds
	}

	return &STSSource{
		client:   client,
		roleARNs: arns,
		session:  session,
		duration: duration,
		external: strings.TrimSpace(opts.ExternalID),
	}, nil
}

// Next assumes the next configured role. The returned set is valid for the
// configured duration only; callers must consume it immediately.
func (s *STSSource) Next(ctx context.Context) (CredentialSet, bool, error) {
	if s.index >= len(s.roleARNs) {
		return CredentialSet{}, false, nil
	}
	arn := s.roleARNs[s.index]
	s.index++

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(arn),
		RoleSessionName: aws.String(s.session),
		DurationSeconds: aws.Int32(s.duration),
	}
	if s.external != "" {
		input.ExternalId = aws.String(s.external)
	}

	out, err := s.client.AssumeRole(ctx, input)
	if err != nil {
		return CredentialSet{}, false, fmt.Errorf("assume role %s: %w", arn, err)
	}
	if out.Credentials == nil {
		return CredentialSet{}, false, fmt.Errorf("assume role %s: empty credentials", arn)
	}

	set := CredentialSet{
		RoleARN:         arn,
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
	}
	if out.Credentials.Expiration != nil {
		set.Expiration = *out.Credentials.Expiration
	}
	return set, true, nil
}
